package main

// defaultConfigTemplate is written by `config init`. Values match config.Defaults.
const defaultConfigTemplate = `# prompt-relay configuration
# Values support ${VAR} expansion from the environment.

server:
  # PORT overrides the port part of this address.
  listen: "0.0.0.0:5000"
  timeout_ms: 120000
  max_concurrent: 0
  max_body_bytes: 1048576
  enable_http2: false
  # Use the first X-Forwarded-For hop as the client key. Enable only behind a trusted proxy.
  trust_forwarded_for: false
  cors:
    allowed_origins: ["*"]

upstream:
  base_url: "https://api.cerebras.ai/v1"
  # Prefer CEREBRAS_API_KEY over storing the key here.
  api_key: "${CEREBRAS_API_KEY}"
  fallback_model: "llama-3.3-70b"
  catalog_timeout_ms: 10000
  completion_timeout_ms: 60000
  rpm_limit: 0
  circuit_breaker:
    enabled: true
    failure_threshold: 5
    open_duration_ms: 30000
    half_open_probes: 3

generation:
  max_tokens: 1024
  temperature: 0.2
  top_p: 1.0

quota:
  daily_limit: 15
  sweep_interval_ms: 3600000

logging:
  level: info
  format: json
  output: stdout
  pretty: false
`
