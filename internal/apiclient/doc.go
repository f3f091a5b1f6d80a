// Package apiclient talks to the edge API.
//
// Every call goes through the same bounded retry policy: transport failures
// and non-2xx responses are retried with a fixed delay, decode failures are
// returned immediately. The request (URL, headers, request ID) is built once
// and reused for every attempt.
package apiclient
