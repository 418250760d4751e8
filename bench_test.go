package blogAuth

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkVerify(b *testing.B) {
	env := newTestEnv(b)
	res := env.register(b, "198.51.100.7", registerInput("bench", "bench@x.test", "Bench"))
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Verify(ctx, res.Tokens.AccessToken); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	env := newTestEnv(b)
	res := env.register(b, "198.51.100.7", registerInput("bench", "bench@x.test", "Bench"))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Refresh(ctx, res.Tokens.RefreshToken); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLogin(b *testing.B) {
	env := newTestEnv(b)
	env.verifiedUser(b, "bench", "bench@x.test", "Bench", RoleUser)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Login(ctx, "bench", "secret1!"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkListUsersAll(b *testing.B) {
	env := newTestEnv(b, func(cfg *Config, _ *Builder) {
		cfg.Registration.IPLimit = 1000
	})
	env.verifiedUser(b, "root", "root@blog.example", "Root", RoleAdmin)
	for i := 0; i < 200; i++ {
		env.register(b, "198.51.100.8", registerInput(fmt.Sprintf("user%03d", i), fmt.Sprintf("user%03d@x.test", i), fmt.Sprintf("User %d", i)))
	}
	ctx := context.Background()
	root := identityOf("root", RoleAdmin)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.ListUsers(ctx, root, ListFilter{Limit: 100}); err != nil {
			b.Fatal(err)
		}
	}
}
