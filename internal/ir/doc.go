// Package ir provides the shared value types of vizq.
//
// This package contains the field model (SourceField, ComputedField), the
// declarative QueryDescriptor consumed by the query factory, the TableMeta
// summary produced by column introspection, and the canonical JSON encoding
// used for content hashing. All other internal packages import ir; ir imports
// nothing internal except queryir, which holds the condition tree.
//
// Key design constraints:
//   - Fields are immutable values; every method has a value receiver
//   - A field's Name() is the stable output key used in result rows
//   - ContentHash is the ONLY way memo keys over payloads are computed
package ir
