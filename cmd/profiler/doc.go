// Command profiler fills in missing company descriptions.
//
// Architecture overview:
//   - Store: internal/storage/postgres (pgx pool) or internal/storage/sqlite supplies up to pipeline.batch_size
//     companies whose description is empty, and receives one UpdateDescription per successfully scraped company.
//   - Dispatcher: internal/dispatcher starts at most pipeline.concurrency extractors at once, either in rounds
//     (barrier between rounds) or as a steady worker pool.
//   - Extractor: internal/extractor opens an isolated browser session per company (chromedp, or colly for the static
//     engine), waits for body, scrolls, collects div/p text, sanitizes it, and enqueues exactly one result envelope.
//   - Aggregator: internal/aggregator is the only consumer of the result queue. It optionally archives the raw text
//     (local or GCS), optionally enriches it with Claude or Gemini, writes the description, and optionally publishes a
//     Pub/Sub notification.
//   - Observability: zap logs carry run_id, company_id, and url; Prometheus collectors are served on metrics.addr
//     together with /healthz and /readyz while the run is in progress.
//
// Quick checklist:
//   - Configure env vars: PROFILER_STORE_DRIVER, PROFILER_STORE_DSN, PROFILER_PIPELINE_CONCURRENCY,
//     PROFILER_BROWSER_ENGINE, PROFILER_ENRICH_ENABLED and PROFILER_ENRICH_API_KEY, archive and notify settings.
//   - Run locally: go run ./cmd/profiler run --config profiler.yaml --limit 50 --concurrency 4
package main
