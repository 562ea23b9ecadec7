package model

import "errors"

var (
	// Catalog related errors
	ErrPackNotFound = errors.New("pack not found")

	// Claim related errors
	ErrClaimNotFound = errors.New("claim not found")
	ErrClaimExists   = errors.New("claim already exists")

	// Token related errors
	ErrTokenInvalid = errors.New("token invalid or expired")

	// Storage related errors
	ErrObjectNotFound = errors.New("object not found")
)
