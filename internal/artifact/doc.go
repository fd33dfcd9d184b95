// Package artifact keeps one verified copy of an externally hosted language
// server artifact in a local directory and decides when to look for updates.
//
// # Cache policy
//
// A small JSON record (metadata.json) next to the artifact stores the
// installed version, its checksum and the time after which the remote source
// may be asked for a newer release. The artifact on disk is only trusted when
// its checksum matches the record.
//
//   - Pinned versions never contact the remote once installed.
//   - "latest" re-checks at most every seven days. A failed check backs off
//     for six hours and keeps using the installed artifact.
//   - With nothing installed, a failed lookup is returned to the caller.
//
// # Install cycle
//
// InstallOrUpdate downloads into a temporary file in the artifact directory,
// extracts the single expected entry for zipped sources, verifies the
// checksum (SHA-256 or SHA-1, chosen by digest length) and an optional
// detached OpenPGP signature, then renames the file into place and removes
// superseded files with the same extension.
//
// # Usage
//
//	src := artifact.NewMavenSource(artifact.NewDownloader())
//	mgr, err := artifact.NewManager(artifact.Config{Dir: dir, Source: src})
//	if err != nil {
//	    return err
//	}
//	needs, err := mgr.NeedsUpdate(ctx, artifact.LatestVersion)
//	if err != nil {
//	    return err
//	}
//	if needs {
//	    err = mgr.InstallOrUpdate(ctx)
//	}
//
// Installer runs the same sequence on a background goroutine, at most one
// at a time.
package artifact
