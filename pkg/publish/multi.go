// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package publish

import (
	"context"

	aerr "github.com/ewoutp/go-aggregate-error"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

type multiPublisher struct {
	publishers []softpwm.Publisher
}

type multiPublication struct {
	name         string
	publications []softpwm.Publication
}

func (p *multiPublication) Name() string { return p.name }

// NewMulti creates a publisher that publishes every channel with all
// of the given publishers.
// Nil publishers are skipped.
func NewMulti(publishers ...softpwm.Publisher) softpwm.Publisher {
	p := &multiPublisher{}
	for _, x := range publishers {
		if x != nil {
			p.publishers = append(p.publishers, x)
		}
	}
	return p
}

// Publish with all publishers. When one fails, the channel is
// unpublished from those that succeeded.
func (m *multiPublisher) Publish(ctx context.Context, slot, pin int) (softpwm.Publication, error) {
	result := &multiPublication{
		name: softpwm.ChannelName(pin),
	}
	for i, p := range m.publishers {
		pub, err := p.Publish(ctx, slot, pin)
		if err != nil {
			for j := i - 1; j >= 0; j-- {
				m.publishers[j].Unpublish(ctx, result.publications[j])
			}
			return nil, err
		}
		result.publications = append(result.publications, pub)
	}
	return result, nil
}

// Unpublish from all publishers.
func (m *multiPublisher) Unpublish(ctx context.Context, p softpwm.Publication) error {
	mp, ok := p.(*multiPublication)
	if !ok {
		return NotPublishedError
	}
	var ae aerr.AggregateError
	for i, pub := range mp.publications {
		ae.Add(m.publishers[i].Unpublish(ctx, pub))
	}
	return ae.AsError()
}
