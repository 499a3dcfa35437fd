// Package player turns a catalog [models.Video] and an untrusted page query into
// everything the lesson page needs to render an embedded Bilibili player.
//
// # Page resolution
//
// [ParsePage] reads the raw "page" query value the way a browser's parseInt would, and
// [Resolve] clamps it into the video's part range and derives the current part,
// its neighbours and the progress through the lesson.
//
// # URL synchronization
//
// [SyncPage] is a pure function from (url, page) to the canonical url for that page.
// Page 1 is canonical without a page parameter. It is idempotent, so the view only
// issues a history.replaceState when the canonical url differs from the request.
//
// # Player URL
//
// [BuildPlayerURL] validates the bvid and every query parameter before building the
// player.bilibili.com embed URL. Any failing parameter rejects the whole URL, so a
// partially sanitized address is never embedded. [Sandbox] and [ReferrerPolicy] are fixed.
//
// # Load state
//
// A [Machine] tracks the embedded frame through Loading, Loaded and Errored. Each loading
// period owns a [Load] that resolves exactly once, or is abandoned when the bound
// video/page changes. [Guard] supervises rendering of the player subtree and turns a
// panic or error into the Errored state instead of failing the page.
package player
