// Package ir provides the value types that travel through compiled queries.
//
// This package contains value definitions and their serialization only. All
// other internal packages import ir; ir imports nothing internal.
//
// Values show up in three places:
//   - filter predicate values, which become positional SQL parameters
//   - record cells returned by an executor or an extra data source
//   - composite correlation keys built from those cells
//
// Key design constraints:
//   - Value is sealed; only the types in this package implement it
//   - scalars are Null, String, Int, Float and Bool; List and Object are
//     compound and never valid as SQL parameters
//   - canonical JSON (MarshalCanonical) rejects floats and nulls so that
//     fingerprints stay stable across platforms
package ir
