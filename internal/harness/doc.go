// Package harness provides conformance testing for the UNION ALL compiler.
//
// A scenario pairs a query request with the outcome it must produce: the
// exact SQL text, fragments the SQL must contain, the number of UNION ALL
// arms, or the validation error codes the request must be rejected with.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: sharded_orders
//	description: "Two shard tables under one shard key"
//	config:
//	  pattern: 'storage_{shard}.dbo."{table}"'
//	  use_shards: true
//	  qualify: alias
//	request:
//	  tables:
//	    - { catalog: hive, schema: dbo, table_name: orders }
//	    - { catalog: hive, schema: dbo, table_name: returns }
//	  shard_key: de
//	  limit: 100
//	expect:
//	  arms: 2
//	  contains:
//	    - 'storage_de.dbo."orders"'
//
// Unknown fields are rejected so that typos fail loudly.
//
// # Deterministic Testing
//
// Every successful compile is recorded into a fresh in-memory history store
// using a deterministic clock and sequential IDs, so the request hash and the
// stored record can be asserted alongside the SQL. Golden files hold the
// generated SQL verbatim:
//
//	go test ./internal/harness -update
package harness
