// Package triage provides the business boundary for blackbox's flight risk
// triage. It defines the Engine (detection, specialist fan-out,
// adjudication, scoring), the Service (dedup, lifecycle, async dispatch),
// the Store interface, and the report models.
package triage
