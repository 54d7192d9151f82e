// Package appconfig loads the server configuration from a TOML file, a
// .env file and SHOPAUTH_-prefixed environment variables, in increasing
// order of precedence, and maps it onto shopAuth.Config.
package appconfig
