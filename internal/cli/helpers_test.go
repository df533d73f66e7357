package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTrino is a coordinator that answers each statement with one page.
type fakeTrino struct {
	mu         sync.Mutex
	results    map[string]string // statement -> response body
	statements []string
	server     *httptest.Server
}

func newFakeTrino(t *testing.T) *fakeTrino {
	t.Helper()

	f := &fakeTrino{results: map[string]string{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sql := string(body)

		f.mu.Lock()
		f.statements = append(f.statements, sql)
		resp, ok := f.results[sql]
		f.mu.Unlock()

		if !ok {
			resp = fmt.Sprintf(`{"id":"q_unknown","error":{"message":%q,"errorName":"SYNTAX_ERROR","errorType":"USER_ERROR"}}`,
				"unexpected statement: "+sql)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(f.server.Close)
	return f
}

// on registers the rows returned for sql.
func (f *fakeTrino) on(sql, queryID string, columns []string, rows ...[]any) {
	cols := make([]map[string]string, len(columns))
	for i, c := range columns {
		cols[i] = map[string]string{"name": c, "type": "varchar"}
	}
	data, _ := json.Marshal(map[string]any{
		"id":      queryID,
		"columns": cols,
		"data":    rows,
		"stats":   map[string]string{"state": "FINISHED"},
	})
	f.mu.Lock()
	f.results[sql] = string(data)
	f.mu.Unlock()
}

// failWith makes sql fail with a Trino query error.
func (f *fakeTrino) failWith(sql, queryID, message string) {
	data, _ := json.Marshal(map[string]any{
		"id": queryID,
		"error": map[string]any{
			"message":   message,
			"errorName": "TABLE_NOT_FOUND",
			"errorType": "USER_ERROR",
		},
	})
	f.mu.Lock()
	f.results[sql] = string(data)
	f.mu.Unlock()
}

func (f *fakeTrino) hostPort(t *testing.T) (string, int) {
	t.Helper()
	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

// writeTestConfig writes a config file pointing at trino (may be nil) with
// history in dir. It returns the config path.
func writeTestConfig(t *testing.T, dir string, trino *fakeTrino) string {
	t.Helper()

	host, port := "localhost", 8080
	if trino != nil {
		host, port = trino.hostPort(t)
	}
	cfg := fmt.Sprintf(`trino:
  host: %s
  port: %d
  user: tester
  rate_limit: 0
app:
  host: 127.0.0.1
  port: 0
patterns:
  country_pattern: 'storage_{shard}.dbo."{table}"'
  use_country_code: true
  default_countries: [de, fr]
metadata:
  cache_ttl: 0s
history:
  enabled: true
  path: %s
`, host, port, filepath.Join(dir, "history.db"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// executeCommand runs the root command with args.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

const ordersRequestJSON = `{
  "tables": [
    {"catalog": "hive", "schema": "dbo", "tableName": "orders"},
    {"catalog": "hive", "schema": "dbo", "tableName": "returns"}
  ],
  "filters": [{"tableIndex": 0, "column": "status", "operator": "=", "value": "paid"}],
  "shardKey": "de",
  "limit": 10
}`

const ordersSQL = "SELECT * FROM hive.dbo.storage_de.dbo.\"orders\" AS t1 WHERE t1.status = 'paid'\n" +
	"UNION ALL\n" +
	"SELECT * FROM hive.dbo.storage_de.dbo.\"returns\" AS t2 WHERE 1=1\n" +
	"LIMIT 10"
