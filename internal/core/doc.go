// Package core provides the donor CRM's import/export pipeline and the
// operations around it.
//
// It holds all domain logic independent of transport and storage. The web
// server, the crmctl CLI and tests all drive the same [Service] over a
// [Store] implementation.
//
// # Entity Registry
//
// Importable entity types register an [EntityDefinition] at init time
// (see package entities). A definition carries the closed field list, the
// row-to-record conversion, the natural key and the insert and export
// operations:
//
//	core.Register(core.EntityDefinition{
//	    Type:   core.EntitySchools,
//	    Fields: []core.FieldSpec{{Name: "name", Label: "Name", Required: true}},
//	    Build:  buildSchool,
//	    Insert: insertSchool,
//	})
//
// # Import
//
// [Service.Import] cleans the upload (BOM, invalid UTF-8), parses it with
// [Parse], resolves the column mapping with [ResolveMapping] and processes
// rows in file order. Each row runs in its own transaction that locks the
// natural key, checks for a duplicate and inserts. Rows with an empty
// required field or an existing natural key are skipped; rows that fail
// are skipped with a "row N: message" entry in the result.
//
// # Export
//
// [Service.Export] renders filtered entities as CSV or as a "; "-joined
// email list. [ParseFilters] and [FiltersFromQuery] turn request input
// into typed [Filters].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError].
// Each category has a code for support reference:
//
//   - VAL: validation (mapping, entity type, request bodies)
//   - FILE: upload problems (size, parse, empty)
//   - DB: storage errors
//   - IMP: import limits and timeouts
//   - AUTH, VIEW, RATE: access, saved views, rate limiting
//
// # Audit Logging
//
// Imports, exports, entity changes, donations and saved-view changes each
// write one audit entry. Audit failures are logged and never fail the
// operation.
package core
