// Package permission resolves what the signed-in operator may do in the
// console.
//
// # Pieces
//
//   - [Snapshot]: the normalised result of GET /auth/me/permissions/. The
//     backend has shipped three shapes over time (a list of codes, a list of
//     {code, …} records, and a category map of either); all of them collapse
//     into one [Set] at ingestion.
//   - [Store]: owns the current snapshot and its loaded flag. Concurrent loads
//     share one backend call.
//   - [Evaluator]: answers HasPermission and friends. Super-admins (is_superuser
//     or is_staff) pass every check.
//   - [Catalog]: the frozen list of codes the console knows about, used to
//     reject route tables that reference unknown codes.
//
// # Architecture boundaries
//
// The evaluator reads identity through the [Identity] interface handed to it at
// construction. It never mutates session state.
//
// # What this package must NOT do
//
//   - Grant anything based on an e-mail address.
//   - Block the console while permissions load.
//   - Clear a previous snapshot because a reload failed.
package permission
