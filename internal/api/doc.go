// Package api exposes report building over HTTP.
//
// Routes (all under /api/v1):
//
//	GET  /health            liveness
//	GET  /reports/{domain}  one Report
//	POST /reports           {"domains":[...]} -> domain -> Report
package api
