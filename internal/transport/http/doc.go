// Package http implements the HTTP request handlers of the SalesPulse API.
// It is a thin layer between the chi router and the service packages:
// handlers parse and validate requests, call one service method, and render
// the result, keeping all business logic in internal/services.
//
// # Handler Structure
//
// Every handler is a struct holding its service interface, a component
// logger and the shared error handler, and exposes its subtree through
// Routes():
//
//	func (h *DatasetHandler) Routes() chi.Router {
//	    r := chi.NewRouter()
//	    r.Post("/", h.Upload)
//	    ...
//	    return r
//	}
//
// The application router mounts each subtree under its /api prefix.
// Dataset-scoped routes run behind DatasetCtx, which validates the id and
// resolves the record before any handler executes, so handlers can assume
// the dataset exists.
//
// # Error Handling
//
// Handlers map service sentinels to *errors.APIError values with errors.Is
// and hand them to the shared ErrorHandler, which responds in RFC 7807
// Problem Details format:
//
//	{
//	    "type": "/errors/dataset/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "Dataset not found",
//	    "instance": "/api/datasets/8b9c...",
//	    "trace_id": "req-123"
//	}
//
// Data-shape failures (no sales column, empty file, nothing to plot) are
// 422 responses whose detail is the narrated analysis text, so the UI can
// show it to the user verbatim.
//
// # Testing
//
// Handler tests run httptest servers against Routes() with fake service
// implementations and assert on status codes and rendered JSON.
package http
