// Package authz holds the role and ownership predicates applied to every
// task, comment, reminder and employee operation.
//
// Predicates are pure: they take the resolved principal and the already
// loaded resource and return a Decision. Existence is the caller's job, so
// a missing resource is reported as NOT_FOUND before any predicate runs,
// and a denying Decision is returned before any mutation is attempted.
package authz
