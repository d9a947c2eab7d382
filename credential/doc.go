// Package credential stores the access/refresh token pair in durable client storage.
//
// A [Store] is a plain key-value surface with two meaningful keys, [KeyAccessToken]
// ("token") and [KeyRefreshToken] ("refreshToken"). The absence of either key is a
// checked state: a [Pair] is complete when both tokens are present or both are absent,
// and corrupt otherwise.
//
// # Implementations
//
//   - [MemoryStore]: process-local, used by tests and throwaway sessions.
//   - [FileStore]: a 0600 JSON document replaced atomically on every write.
//   - [RedisStore]: shared storage for operator workstations that sit behind a
//     common Redis.
//
// # What this package must NOT do
//
//   - Interpret tokens (no JWT parsing).
//   - Decide when credentials are cleared; that belongs to the session state machine.
package credential
