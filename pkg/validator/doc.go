// Package validator provides composable, allocation-light validation rules
// for request payloads. Validation is a pure function: Apply evaluates every
// rule and returns either nil or a ValidationErrors value that maps fields to
// their failures. Errors are data, never panics or control flow.
package validator
