// SPDX-License-Identifier: Apache-2.0
// Minion Engine Observability Dashboards
// This file documents dashboard templates for OpenTelemetry OTEL UI or Grafana.
//
// DASHBOARD: Class Compilation
//   Shows compile throughput and failure trends across the process.
//
//   Queries:
//   - minion.classes.compiled{minion.class.name} (rate 5m)
//     Metric: Successful compilations per class
//     Display: Line chart with legend per class
//
//   - minion.classes.compile_failed{minion.class.name} (rate 5m)
//     Metric: Failed compilations (spec defects, composition conflicts)
//     Display: Stacked area chart
//     Alert Threshold: > 0 sustained for 5m (compilation is usually boot-time)
//
//   - minion.classes.registered (cumulative)
//     Metric: Classes registered into a registry
//     Display: Single stat
//     Insight: registered should track compiled for named classes;
//     a gap means anonymous classes dominate
//
// DASHBOARD: Instance Construction
//   Shows constructor throughput and validation failures.
//
//   Queries:
//   - minion.instances.constructed{minion.class.name} (rate 5m)
//     Metric: Instances constructed per class
//     Display: Line chart
//
//   - minion.instances.construct_failed{minion.class.name} (rate 5m)
//     Metric: Constructions rejected (assertion failures, build hook errors)
//     Display: Stacked area chart
//     Goal: construct_failed / (constructed + construct_failed) < 5%
//
//   - Failure ratio per class
//     PromQL: rate(minion.instances.construct_failed[5m])
//             / (rate(minion.instances.constructed[5m]) + rate(minion.instances.construct_failed[5m]))
//     Display: Heatmap by minion.class.name
//     Insight: a hot class here means callers ship values its
//     assertions reject; check the failing clause in the audit trail
//
// DASHBOARD: Audit Retention
//   Shows the runtime's audit sweep loop health.
//
//   Queries:
//   - minion.runtime.audit.sweep.count (rate 15m)
//     Metric: Sweep executions
//     Display: Single stat; zero while a retention window is set means
//     the sweeper stopped
//
//   - minion.runtime.audit.sweep.error.count (rate 15m)
//     Metric: Failed sweeps
//     Display: Single stat with threshold coloring
//     Alert Threshold: > 0 for 15m
//
//   - minion.runtime.audit.pruned.count (rate 1h)
//     Metric: Events pruned per sweep window
//     Display: Bar chart
//     Insight: a sudden spike means event volume jumped an hour earlier
//
//   - minion.runtime.audit.sweep.latency_ms (p95)
//     Metric: Sweep latency
//     Display: Line chart
//     Alert Threshold: p95 > sweep timeout budget
//
// TRACING: span names emitted by the engine and runtime
//
//   - Minionize                   delimits one compile run; failures
//                                 carry minion.error.kind
//   - Runtime.Construct           one validated construction, labeled
//                                 with minion.class.name and counts
//   - Runtime.Dispatch            one public method call, labeled with
//                                 minion.dispatch.selector and surface
//   - runtime.audit.sweep         one retention sweep, labeled with
//                                 retention and pruned count
//   - mcp.instance.new            construction requested over MCP
//   - mcp.instance.call           dispatch requested over MCP
//
//   Engine logs carry explicit trace_id and span_id fields, so log
//   lines join to spans in any backend without correlation plugins.
//
// ALERT RULES (Prometheus/AlertManager format):
//
// Alert 1: Compile Failures
//   Name: MinionCompileFailures
//   Condition: rate(minion.classes.compile_failed[5m]) > 0
//   Duration: 5m
//   Severity: critical
//   Message: "class {{ $labels.minion_class_name }} failing to compile"
//   Action: Check class.compile_failed audit events for the defect detail
//
// Alert 2: Construction Rejection Ratio
//   Name: MinionConstructRejections
//   Condition: rate(minion.instances.construct_failed[5m])
//              / (rate(minion.instances.constructed[5m]) + rate(minion.instances.construct_failed[5m])) > 0.2
//   Duration: 5m
//   Severity: warning
//   Message: "{{ $labels.minion_class_name }} rejecting {{ $value }} of constructions"
//   Action: Inspect assertion descriptions in instance.construct_failed events
//
// Alert 3: Audit Sweep Errors
//   Name: MinionAuditSweepErrors
//   Condition: rate(minion.runtime.audit.sweep.error.count[15m]) > 0
//   Duration: 15m
//   Severity: warning
//   Message: "audit retention sweeps failing"
//   Action: Check runtime.audit.sweep.error logs, verify store health
//
// Alert 4: Audit Store Growth
//   Name: MinionAuditUnpruned
//   Condition: rate(minion.runtime.audit.sweep.count[1h]) == 0
//   Duration: 1h
//   Severity: warning
//   Message: "no audit sweeps ran in the last hour"
//   Action: Confirm retention and interval are configured on the runtime
//
// OTEL QUERY EXAMPLES for OTEL UI or Grafana:
//
// 1. Construction Rate by Class (5-minute)
//    PromQL: rate(minion.instances.constructed[5m]) by (minion.class.name)
//
// 2. Construction Success Percentage
//    PromQL: (rate(minion.instances.constructed[5m])
//            / (rate(minion.instances.constructed[5m]) + rate(minion.instances.construct_failed[5m]))) * 100
//    Display: Single stat, goal >= 95%
//
// 3. Top Classes by Rejections
//    PromQL: topk(5, sum(rate(minion.instances.construct_failed[5m])) by (minion.class.name))
//    Display: Bar chart
//
// 4. Sweep Latency p95 (24h)
//    PromQL: histogram_quantile(0.95, rate(minion.runtime.audit.sweep.latency_ms[5m]))
//    Range: 24h
//    Display: Line chart against the sweep timeout budget
//
// INTEGRATION PATTERNS:
//
// 1. Metrics Without Code Changes:
//    - telemetry.NewRecorder() implements minion.EventEmitter
//    - Combine with other emitters: minion.CombineEmitters(recorder, auditEmitter)
//    - Pass via minion.WithEmitter at compile time; every lifecycle
//      event increments the matching counter
//
// 2. Trace and Log Correlation:
//    - Runtime.Construct and Runtime.Dispatch start spans and log with
//      explicit trace_id/span_id fields
//    - Filter logs by trace_id to see the full construction story,
//      including the audit emitter's failures
//
// 3. Audit as Source of Record:
//    - Metrics stay class-level; per-instance forensics live in the
//      audit store (instance IDs, error text, payloads)
//    - Alert on metrics, then drill into audit events by class and type
//
// 4. Cardinality Budget:
//    - Counters label by minion.class.name only; instance IDs and
//      selectors stay in spans and audit rows
//    - Keep class names bounded; anonymous classes aggregate under
//      minion.class.anonymous
package dashboards

// This file is documentation only and declares no code.
// See pkg/telemetry/metrics.go for the recorder implementation.
