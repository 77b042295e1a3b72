// Package tasks is the storage façade of the achievement tracker.
//
// # Tracker
//
// [Tracker] composes an achievement store, an optional account store, a [services.PasswordCipher] and a
// [services.ImageHost] behind the operations the CLI and TUI expose:
//
//  1. Accounts : [Tracker.SignUp], [Tracker.Login], [Tracker.LoginRemembered], [Tracker.Logout]
//  2. Categories : [Tracker.Categories] aggregates completion per category, [Tracker.DeleteCategory] cascades
//  3. Achievements : create (after a uniqueness lookup), show, delete and [Tracker.SetProgress]
//  4. Images : [Tracker.PendingImages] lists achievements without an image, [Tracker.AttachImage] uploads one
//
// Every operation first checks [Authorize] against the current [models.Session]:
// local mode has no accounts, remote mode requires a login, and artist accounts only see the image flow.
//
// # Progress Reporting
//
// [Tracker.DeleteCategory] paces its deletes with a token bucket and reports each one on an optional channel.
// Updates use select with default to prevent blocking.
package tasks
