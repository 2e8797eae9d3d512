// Package preflight provides readiness checks for external tools and
// filesystem paths that tomopipe depends on.
//
// These checks run in two contexts:
//   - The halfsets and denoise drivers call RunAll before touching the
//     ledger. A run over dozens of tomograms is not worth starting when the
//     scan root is unreadable or the archive mount is absent.
//   - The CLI "tomopipe status" command uses CheckSystemDeps and the
//     individual check functions to display tool and path health.
//
// Each check is gated by its config value -- unconfigured features are skipped.
package preflight
