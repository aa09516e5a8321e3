package sources

import (
	"context"
	"errors"
	"slices"
)

// Bundle runs several sources as one and writes them into a single envelope.
type Bundle struct {
	desc  Description
	parts []Source
}

// NewBundle combines `parts` under `desc`. The envelope sources and browser
// requirement are taken from the parts when desc leaves them empty.
func NewBundle(desc Description, parts ...Source) *Bundle {
	for _, p := range parts {
		pd := p.Describe()
		if pd.Browser {
			desc.Browser = true
		}
		for _, c := range pd.Credentials {
			if !slices.Contains(desc.Credentials, c) {
				desc.Credentials = append(desc.Credentials, c)
			}
		}
	}
	if len(desc.Sources) == 0 {
		for _, p := range parts {
			desc.Sources = append(desc.Sources, p.Describe().Sources...)
		}
	}
	return &Bundle{desc: desc, parts: parts}
}

func (b *Bundle) Name() string {
	return b.desc.Name
}

func (b *Bundle) Describe() Description {
	return b.desc
}

// Collect runs every part concurrently. A part that cannot run at all only
// fails the bundle when every other part also produced nothing.
func (b *Bundle) Collect(ctx context.Context) (Batch, error) {
	outcomes := MergeAll(FanOut(ctx, b.parts, func(ctx context.Context, s Source) Batch {
		batch, err := s.Collect(ctx)
		if err != nil {
			batch.Fail(s.Name(), ReasonSetup, err)
		}
		return batch
	}))

	var errs []error
	for _, f := range outcomes.Failures {
		if f.Reason == ReasonSetup {
			errs = append(errs, f.Err)
		}
	}
	if len(outcomes.Records) == 0 && len(errs) > 0 {
		return outcomes, errors.Join(errs...)
	}
	return outcomes, nil
}
