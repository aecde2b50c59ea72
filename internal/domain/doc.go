// Package domain contains the core types of the application: forms and
// their fields, submitted responses, live events, and analytics summaries.
// It has no dependencies on transport or storage packages.
package domain
