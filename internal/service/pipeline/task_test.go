package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/internal/service/news"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTask_Run(t *testing.T) {
	t.Run("hold cycle succeeds", func(t *testing.T) {
		f := newFixture(t, []string{"5m", "15m", "30m"})
		f.market.On("GetKlines", mock.Anything, mock.Anything).
			Return([]exchange.Kline(nil), errors.New("timeout")).Times(3)
		f.collector.On("Collect", mock.Anything, mock.Anything).Return(news.Evidence{}, nil).Once()
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		task := NewTask(f.o)
		assert.Equal(t, "decision cycle task", task.Name())
		assert.NoError(t, task.Run(context.Background()))
		f.assertAll(t)
	})

	t.Run("cancelled cycle surfaces error", func(t *testing.T) {
		f := newFixture(t, allFrames)
		ctx, cancel := context.WithCancel(context.Background())
		f.market.On("GetKlines", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return([]exchange.Kline(nil), context.Canceled)
		f.collector.On("Collect", mock.Anything, mock.Anything).Return(news.Evidence{}, context.Canceled).Maybe()

		err := NewTask(f.o).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		f.o.Wait()
	})
}
