// Package store holds datasource tables in an in-memory SQLite database.
//
// Every datasource id maps to one table (see ir.TableNameFor). Tables are
// created lazily, dropped and recreated when their schema may have changed,
// and filled from decoded JSON payloads, optionally reshaped by JSONata
// extraction expressions.
//
// # Column Types
//
//	string   TEXT
//	number   REAL
//	date     DATE
//	boolean  BOOLEAN
//	<other>  upper-cased name
//
// Column introspection maps the declared types back, so a table created from
// a schema reports the same field types.
//
// DATE columns read back as time.Time and BOOLEAN columns as bool, since the
// driver converts values by declared column type.
//
// # SQL Functions
//
// Each store registers its own driver whose connect hook installs:
//
//	LAST(x)              aggregate returning the last value in scan order
//	jsonata(expr, json)  evaluates a JSONata expression over a JSON column
//
// # Connection Model
//
// The database lives in a single connection; every call is serialized
// through it. Closing the store discards all tables.
package store
