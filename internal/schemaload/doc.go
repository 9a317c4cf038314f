// Package schemaload reads schema declarations from configuration files.
//
// A file holds two objects, tables and fields, keyed by table and field
// key:
//
//	{
//	  "tables": {
//	    "users": {},
//	    "profiles": {"join": {"on": "profiles.user_id = users.id", "type": "LEFT"}, "dependency": "id"}
//	  },
//	  "fields": {
//	    "id": {},
//	    "bio": {"table": "profiles", "name": "biography"}
//	  }
//	}
//
// JSON, YAML and CUE are accepted. Key order is kept for every format, so
// the first table is the primary table.
package schemaload
