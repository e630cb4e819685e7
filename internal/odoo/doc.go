// Package odoo provides RPC clients for the Odoo external API.
//
// # Overview
//
// Odoo exposes two incompatible wire protocols depending on server version:
//
//   - Legacy JSON-RPC (Odoo 14-18): a single POST /jsonrpc endpoint carrying
//     a {service, method, args} envelope, authenticated with a
//     database/username/password triple resolved to a numeric user id.
//   - JSON-2 (Odoo 19+): per-model, per-method POST /json/2/<model>/<method>
//     endpoints with bearer-token authentication and a request body whose
//     shape depends on the method being called.
//
// Both are hidden behind the Transport interface. Client wraps exactly one
// Transport, picked either explicitly or by probing JSON-2 first and falling
// back to legacy, and exposes the uniform operation set (Search, Read,
// SearchRead, Create, Write, Unlink, NameSearch, ExecuteKw, ExecuteSudo).
//
// # Retries
//
// Read-only, idempotent methods (search, search_read, read, fields_get,
// name_search) are retried on connection-level failures with exponential
// backoff per RetryPolicy. Mutating methods are never retried automatically:
// resubmitting a create or an action risks duplicate side effects.
//
// # Errors
//
// Transport-level failures surface as *TransportError carrying the numeric
// code and the structured data payload from the server. When the server
// identifies the exception class (data.name, e.g.
// "odoo.exceptions.AccessError"), the error additionally matches the
// corresponding sentinel via errors.Is: ErrUserError, ErrAccessDenied,
// ErrAccessError, ErrMissingRecord, ErrValidation. Authentication failures
// are *AuthError; a read that should have matched exactly one record is
// *NotFoundError.
//
// # Concurrency
//
// A Client is meant to be used from a single logical task per session. The
// memoized user id is written on first use without synchronization;
// concurrent first-use is undefined, by contract rather than by accident.
package odoo
