// Package adapter connects an editor's LSP client to the LemMinX XML
// language server.
//
// An Adapter answers the questions an editor asks before starting the
// server: whether an install or update is needed, how to perform it, the
// command line to run, the working directory, and the initialization
// options derived from the user's settings. Artifact acquisition is
// delegated to an artifact.Manager selected by the configured strategy
// (uber jar from Maven, or a native binary from GitHub releases).
package adapter
