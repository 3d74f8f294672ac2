// Package restclient implements the reduced backend on the repo's
// high-level HTTP client.
//
// Its authentication surface is narrower than the native backend's:
// NTLM degrades to basic or to no authentication, proxy negotiate and
// proxy NTLM degrade to basic proxy credentials, and no transfer timing
// is reported. Each degradation yields a successful transaction rather
// than an error.
package restclient
