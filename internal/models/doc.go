// Package models defines the two values that move through an authorization run.
//
//   - [AuthorizationResult] : what the browser redirect delivered, a code or an error
//   - [TokenResponse] : the parsed body of the token endpoint's reply
//
// Neither outlives the process.
package models
