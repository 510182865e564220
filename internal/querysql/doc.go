// Package querysql compiles queryir rule trees into SQL WHERE clauses.
//
// The compiler renders either literal SQL, with values escaped and quoted
// inline, or a parameterized statement in one of three placeholder styles:
//
//	question_mark   revenue > ?          params: [50]
//	numbered        revenue > $1         params: [50]
//	named           revenue > :revenue_1 params: {"revenue_1": 50}
//
// Unknown operators are skipped. An invalid combinator, a missing value or
// a value that cannot be coerced to its declared type is a
// queryir.ConstructionError.
package querysql
