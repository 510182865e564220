// Package engine turns query descriptors into runnable queries over a store.
//
// # Building
//
// A Factory resolves a descriptor against the store in one step:
//
//	SELECT * FROM datasource_<table> WHERE <conditions> GROUP BY <groupBy> ORDER BY <order>
//
// Descriptors without grouping or conditions run their own QueryString, with
// the first occurrence of the table id replaced by the table name. TableMeta
// and the resolved Datasource fields are computed at build time so that
// presentation code can read them without touching the store.
//
// # Execution
//
// Execute and Summary never return Go errors. They return a Result whose Err
// field carries the failure (wrapped in ErrExecution) and whose Rows are
// empty. Callers that only want rows use Result.RowsOrEmpty.
//
// # Combining
//
// Combine reduces the queries of one widget into a single Combined value.
// Lazy combining executes immediately: when every query carries a key the
// results are keyed, otherwise rows are concatenated. Non-lazy combining
// defers execution to Combined.Execute, which returns a Batch: the rows of
// every query that ran, concatenated, and one error per query that failed.
package engine
