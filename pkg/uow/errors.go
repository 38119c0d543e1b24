package uow

import "errors"

var (
	ErrRepositoryNotRegistered     = errors.New("uow: no repository registered under this name")
	ErrRepositoryAlreadyRegistered = errors.New("uow: repository name is already taken")
	ErrInvalidRepositoryType       = errors.New("uow: repository has unexpected type")
	ErrNilFactory                  = errors.New("uow: repository factory is nil")
)
