// Package helix is a client for the Twitch Helix API.
//
// The core is the request pipeline: Client.Do authorizes a call with a
// Session, waits for rate-limit quota, dispatches it, transparently refreshes
// an expired token once on 401, and normalizes every outcome into a Response
// envelope so callers branch on status instead of transport errors.
package helix
