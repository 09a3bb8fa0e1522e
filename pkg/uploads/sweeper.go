package uploads

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically removes files a crashed or cancelled request left
// behind in the store.
type Sweeper struct {
	store  *Store
	maxAge time.Duration
	runner *cron.Cron
}

func NewSweeper(store *Store, schedule string, maxAge time.Duration) (*Sweeper, error) {
	if store == nil {
		return nil, utils.WrapIfNotNil(errors.New("store is required"))
	}
	if maxAge <= 0 {
		return nil, utils.WrapIfNotNil(errors.New("sweep max age must be positive"))
	}

	s := &Sweeper{
		store:  store,
		maxAge: maxAge,
		runner: cron.New(),
	}
	if _, err := s.runner.AddFunc(strings.TrimSpace(schedule), s.run); err != nil {
		return nil, utils.WrapIfNotNil(err, "schedule "+schedule)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.runner.Start()
	logging.NewLogger(context.Background()).Infof("upload sweeper started dir=%q max_age=%s", s.store.Dir(), s.maxAge)
}

// Stop halts scheduling and returns a context that is done once a running
// sweep has finished.
func (s *Sweeper) Stop() context.Context {
	return s.runner.Stop()
}

func (s *Sweeper) run() {
	ctx := context.Background()
	log := logging.NewLogger(ctx)
	defer utils.RecoverAndLog("upload sweep", log)

	removed, err := s.store.Sweep(ctx, s.maxAge)
	if err != nil {
		log.Errorf("error: %v", err)
		return
	}
	if removed > 0 {
		log.Infof("upload sweep removed=%d", removed)
	}
}
