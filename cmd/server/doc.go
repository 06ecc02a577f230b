// Package main is the entry point for the web augmentation server.
//
// The server classifies chat turns, runs web searches, fetches page
// content concurrently and returns a citation-annotated prompt that a
// conversational client feeds to its model.
//
// Pipeline:
//
//	Chat client → POST /v1/augment → Analyzing → Searching → Fetching → Building
//
// Search runs through a scraping browser surface (Google, Bing or
// Baidu) by default, or through a direct content API in a single round
// trip when SEARCH_DIRECT_API_KEY is set.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	./server -port 8600 -engine google
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
