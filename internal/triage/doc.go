// Package triage provides the business boundary for Sentinel's incident triage
// workflow. It defines the Service (ingest, enrich, decide, persist, escalate),
// the Store interface (document persistence), and the workflow metrics.
package triage
