package main

import (
	"context"
	"errors"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublishers caches one ordered publisher per topic for the life of the process.
func topicPublishers(client pubSubClient) publisherFactory {
	var mu sync.Mutex
	cache := map[string]publisher{}
	return func(topic string) publisher {
		mu.Lock()
		defer mu.Unlock()
		if pub, ok := cache[topic]; ok {
			return pub
		}
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		p.EnableMessageOrdering = true
		pub := &orderedPublisher{Publisher: p}
		cache[topic] = pub
		return pub
	}
}

type orderedPublisher struct {
	*gcppubsub.Publisher
}

func (p *orderedPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &orderedResult{
		PublishResult: p.Publisher.Publish(ctx, msg),
		resume:        p.Publisher,
		key:           msg.OrderingKey,
	}
}

// orderedResult resumes the ordering key after a failure; a paused key rejects every later
// message for the same booking until resumed.
type orderedResult struct {
	*gcppubsub.PublishResult
	resume *gcppubsub.Publisher
	key    string
}

func (r *orderedResult) Get(ctx context.Context) (string, error) {
	if r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.key != "" {
		r.resume.ResumePublish(r.key)
	}
	return id, err
}
