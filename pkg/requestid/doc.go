// Package requestid assigns every HTTP request an id, exposes it through the
// request context and adds it to log records via LoggerExtractor.
package requestid
