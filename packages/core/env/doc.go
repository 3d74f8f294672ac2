// Package env loads .env files for gocurl.
//
// A .env file in the working directory is exported into the process
// environment at startup (never overriding variables that are already
// set), so GOCURL_USER, HTTPS_PROXY and friends can live next to a
// project instead of in the shell profile. The --env-file flag loads an
// explicit file through godotenv before this bootstrap runs.
package env
