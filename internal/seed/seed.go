// Package seed fills an empty database with demo users and posts.
package seed

import (
	"context"
	"fmt"

	"securityapi/internal/auth"
	"securityapi/internal/observability"
	"securityapi/internal/post"
)

type demoUser struct {
	username string
	email    string
	password string
	title    string
	content  string
}

var demoUsers = []demoUser{
	{"admin", "admin@example.com", "password123", "Знакомство", "Привет, я администратор этого сайта"},
	{"Denichenko", "titkos02@mail.ru", "qwerty123", "О себе", "Я обучаюсь в университете ИТМО и сейчас делаю лабораторную по информационной безопасности"},
	{"Student367193", "367193@se.itmo.ru", "itmo2025", "Пост студента", "Мой ИСУ 367193"},
}

type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

type Registrar interface {
	Register(ctx context.Context, username, email, password string) (auth.User, error)
}

type PostCreator interface {
	Create(ctx context.Context, authorID, authorUsername string, input post.PostInput) (post.Post, error)
}

// Run creates the demo data when no users exist yet. It is a no-op otherwise.
func Run(ctx context.Context, users UserCounter, registrar Registrar, posts PostCreator, logger *observability.Logger) error {
	count, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, demo := range demoUsers {
		user, err := registrar.Register(ctx, demo.username, demo.email, demo.password)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", demo.username, err)
		}
		if _, err := posts.Create(ctx, user.ID, user.Username, post.PostInput{Title: demo.title, Content: demo.content}); err != nil {
			return fmt.Errorf("seed post for %s: %w", demo.username, err)
		}
	}

	logger.Info("seed_completed", map[string]any{"users": len(demoUsers)})
	return nil
}
