// Package auth implements credential verification and session security for
// multi tenant HTTP backends: bcrypt password hashing behind a bounded
// worker pool, a dual token scheme with short lived JWT access tokens and
// rotating single use refresh tokens, refresh token families with reuse
// detection, server side session records, and a sliding window login
// lockout.
//
// The package is storage backed by bun and exposes its HTTP surface through
// go-router, so it mounts on fiber or net/http alike. Wire it from a Config
// implementation:
//
//	repo := auth.NewRepositoryManager(db,
//		auth.WithManagerRefreshTokenPepper([]byte(cfg.GetRefreshTokenPepper())),
//	)
//	auther := auth.NewAuthenticator(repo, cfg)
//	httpAuth, _ := auth.NewHTTPAuthenticator(auther, cfg)
//	auth.RegisterAuthRoutes(srv.Router(),
//		auth.WithControllerRepo(repo),
//		auth.WithControllerAuther(httpAuth),
//	)
package auth
