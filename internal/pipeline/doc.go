// Package pipeline runs one audit from URL to AnalysisReport.
//
// # States
//
// A run moves through fixed states:
//
//	Init → Fetching → StaticAnalysis → Rendering → AIAnalysis → Assembling → Done
//	                                                                         ↘ Failed
//
// Only the fetch is terminal. A failed render skips AIAnalysis and the report
// is assembled from the static findings. A failed or unconfigured provider
// chain does the same. Unexpected failures end in Failed and produce no report.
//
// # Resources
//
// The whole run is bounded by a wall-clock budget. Fetch, render and each
// provider call carry their own timeouts inside it. The browser session is
// opened in Rendering and closed on every exit path.
package pipeline
