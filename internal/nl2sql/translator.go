package nl2sql

import "context"

type Request struct {
	Question   string
	SchemaText string
}

type Result struct {
	SQL   string
	Model string
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
