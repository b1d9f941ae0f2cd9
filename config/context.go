package config

type contextKey string

const ContextRequestIDKey contextKey = "requestId"
