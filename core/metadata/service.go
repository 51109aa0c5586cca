package metadata

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// Creator adds reference records upstream. Both calls return the server's confirmation message.
type Creator interface {
	CreateStudent(ctx context.Context, ns NewStudent) (string, error)
	CreateFaculty(ctx context.Context, nf NewFaculty) (string, error)
}

type Service struct {
	cache      *Cache
	creator    Creator
	validate   *validator.Validate
	translator ut.Translator
}

func NewService(cache *Cache, creator Creator, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{cache: cache, creator: creator, validate: validate, translator: translator}
}

func (svc *Service) Cache() *Cache { return svc.cache }

// CreateStudent validates `ns`, submits it, then reloads every collection.
// A reload failure is returned alongside the confirmation message.
func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (string, error) {
	ns.Name = core.CleanString(ns.Name)
	if err := core.ValidateStruct(svc.validate, svc.translator, ns, "invalid student"); err != nil {
		return "", err
	}
	msg, err := svc.creator.CreateStudent(ctx, ns)
	if err != nil {
		return "", errors.Wrap(err, "creating student")
	}
	return msg, svc.reload(ctx)
}

// CreateFaculty validates `nf`, submits it, then reloads every collection.
func (svc *Service) CreateFaculty(ctx context.Context, nf NewFaculty) (string, error) {
	nf.Name = core.CleanString(nf.Name)
	if err := core.ValidateStruct(svc.validate, svc.translator, nf, "invalid faculty"); err != nil {
		return "", err
	}
	msg, err := svc.creator.CreateFaculty(ctx, nf)
	if err != nil {
		return "", errors.Wrap(err, "creating faculty")
	}
	return msg, svc.reload(ctx)
}

func (svc *Service) reload(ctx context.Context) error {
	return errors.Wrap(svc.cache.Load(ctx), "reloading metadata")
}
