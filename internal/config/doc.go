// Package config loads and merges phabmd configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PHABRICATOR_TOKEN, PHABRICATOR_BASE_URL,
//     PHABRICATOR_COOKIES, PHABMD_FORMAT, PHABMD_LOG_LEVEL, ...), optionally
//     seeded from a .env file via [LoadDotEnv]
//  3. Config file ($XDG_CONFIG_HOME/phabmd/config.json)
//  4. Built-in defaults
//
// Credentials (the Conduit API token and the session cookie override) are
// only ever read from the environment or flags and are never written to the
// config file.
package config
