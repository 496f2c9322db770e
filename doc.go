// Package deskd implements the authentication core of the deskd support
// backend: local signup/login, federated login against a trusted external
// issuer, and self-contained bearer session tokens.
//
// Identity model:
//   - Users are keyed by email (unique, case-insensitive). A user is either
//     locally authenticated (password hash on record) or federated (subject id
//     from the external issuer on record). A local account that completes a
//     federated login is linked in place: the provider flips to federated, the
//     subject id is attached, and the password hash is retained so password
//     login keeps working.
//
// Tokens:
//   - Session tokens are HS256 JWTs carrying only the user id and an absolute
//     expiry. They are not persisted; verification is signature plus expiry.
//   - Federated assertions are RS256 JWTs verified against the issuer's JWKS,
//     fetched over the network and cached with background refresh. Only
//     verified claims are ever trusted.
//
// The middleware/tokenauth subpackage gates protected routes, and the ticket
// subpackage builds the support-ticket workflow on top of the identities
// established here.
package deskd
