// Package platform connects a run to its host: where the search arguments
// come from and where the result goes.
//
// Argument sources:
//   - JSONArgument: a raw JSON object, e.g. from a flag or environment variable
//   - FileArgument: a JSON or YAML file
//
// Result sinks:
//   - WriterSink: indented JSON to an io.Writer
//   - FileSink: indented JSON to a file, replaced atomically
//   - RedisSink: JSON under a Redis key with a TTL
//
// Argument keys are passed through untouched so that unknown keys reach the
// filter validation and are rejected there.
package platform
