// Package http provides HTTP handlers and middleware for the confidential
// scheduler API. All schedule values cross this surface as opaque base64
// ciphertext handles; the only plaintext endpoint is the revealed-schedule
// read, which serves the owning employee after the reveal protocol completes.
//
// The router exposes the following endpoints:
//   - POST /preferences: append the caller's encrypted preference submission.
//     Body: {"days_in_office","team_days","focus_days","flexibility"} with
//     each field a base64 ciphertext handle.
//   - GET /employees/{id}/preferences: full submission history, oldest first.
//   - GET /employees/{id}/preferences/latest: the effective ledger entry.
//   - GET /teams/{id}/members, POST /teams/{id}/members: roster read and
//     administrator-controlled append. Body: {"employee_id"}.
//   - POST /teams/{id}/optimize: run the encrypted optimization pass over the
//     roster. Administrator only.
//   - POST /teams/{id}/events: add encrypted event days to the team's
//     collaboration schedule. Body: {"event_days"}. Administrator only.
//   - POST /teams/{id}/collaboration: raise overlap with a partner team.
//     Body: {"partner_team_id"}. Administrator only.
//   - POST /employees/{id}/assignment: blend the employee's preference with
//     an optimized team schedule. Body: {"team_id"}. Administrator only.
//   - POST /employees/{id}/constraints: clamp the assignment's office days to
//     an encrypted bound. Body: {"max_office_days"}. Administrator only.
//   - GET /teams/{id}/metrics/{name}: encrypted team metric handles, where
//     name is one of collaboration, flexibility, efficiency, conflict or
//     remote-impact.
//   - GET /employees/{id}/metrics/{name}: encrypted employee metric handles,
//     where name is one of satisfaction, focus-time, work-life-balance,
//     recommendation or adherence.
//   - POST /employees/{id}/reveal: start the reveal protocol; responds with
//     the correlation {"request_id"}. GET on the same path reports the
//     coordinator state.
//   - GET /employees/{id}/schedule: the revealed plaintext schedule, owner
//     only.
//   - POST /decryption-results: the co-processor's asynchronous delivery
//     callback. Body: {"request_id","plaintext","proof"}. Mounted outside the
//     identity middleware; the Ed25519 attestation authenticates the payload.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
