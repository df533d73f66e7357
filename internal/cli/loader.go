package cli

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fedunion/internal/queryir"
)

//go:embed request.cue
var requestSchema string

// LoadError is a failure to load an input: a request file, the configuration
// or the history database.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands. Request validation
// codes (E2xx) come from queryir.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeReadFailed   = "E002" // File read error
	ErrCodeUnsupported  = "E003" // Unsupported request file extension
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build or schema unification failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeDecodeFailed = "E008" // JSON/YAML decode failed
	ErrCodeConfig       = "E009" // Configuration error
	ErrCodeTrino        = "E010" // Trino request failed
	ErrCodeHistory      = "E011" // History database error
)

// LoadRequest reads a query request from a .json, .yaml/.yml or .cue file.
// A path of "-" reads JSON from stdin.
func LoadRequest(path string) (queryir.QueryRequest, error) {
	var req queryir.QueryRequest

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return req, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("request file not found: %s", path)}
		}
		return req, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", "":
		err = decodeJSONRequest(data, &req)
	case ".yaml", ".yml":
		err = decodeYAMLRequest(data, &req)
	case ".cue":
		err = decodeCUERequest(path, data, &req)
	default:
		return req, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported request file extension %q (want .json, .yaml, .yml or .cue)", ext)}
	}
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return req, err
		}
		return req, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("decoding %s: %v", path, err)}
	}
	return req, nil
}

func decodeJSONRequest(data []byte, req *queryir.QueryRequest) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(req)
}

func decodeYAMLRequest(data []byte, req *queryir.QueryRequest) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(req)
}

// decodeCUERequest unifies the file with #Request and exports the result to
// JSON.
func decodeCUERequest(path string, data []byte, req *queryir.QueryRequest) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(requestSchema, cue.Filename("request.cue"))
	if err := schema.Err(); err != nil {
		return &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("request schema: %v", err)}
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return cueLoadError(ErrCodeLoadFailed, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Request")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueLoadError(ErrCodeBuildFailed, err)
	}

	exported, err := unified.MarshalJSON()
	if err != nil {
		return cueLoadError(ErrCodeBuildFailed, err)
	}
	return json.Unmarshal(exported, req)
}

// cueLoadError converts the first CUE error to a LoadError with its position.
func cueLoadError(code string, err error) *LoadError {
	loadErr := &LoadError{Code: code, Message: err.Error()}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		loadErr.Message = errs[0].Error()
		loadErr.Pos = errs[0].Position()
	}
	return loadErr
}

// FindRequestFiles walks dir and returns every request file, sorted.
func FindRequestFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml", ".cue":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
