// Package harness runs request scenarios against a schema and a SQLite
// fixture.
//
// A scenario names a schema configuration file, a SQL script that creates
// and fills the fixture tables, and a list of steps. Each step prepares one
// request, renders it, fetches the records (extra tables included) and
// counts the total. Optional expect clauses check the outcome:
//
//	name: active_users
//	description: Active users with their country
//	schema: users.yaml
//	fixture: fixture.sql
//	extra_keys:
//	  ratings: [user_id]
//	steps:
//	  - name: by country
//	    request:
//	      fields: name,country_name
//	      filter: [status, active]
//	      order: id:desc
//	    expect:
//	      count: 2
//	      records:
//	        - {name: bob, country_name: PE}
//
// Every scenario runs in a fresh in-memory database, and request ids are
// fixed per step so snapshots are reproducible.
package harness
