package application

import (
	"context"
	"net/http"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
)

// Observer follows crawl progress. Calls for one layer come from several
// goroutines.
type Observer interface {
	OnLayerStart(layer, size int)
	OnURLProcessed(result entity.JobResult)
	OnLayerDone(layer int)
}

// Scanner fingerprints a fetched response
type Scanner interface {
	Scan(ctx context.Context, url string, header http.Header) ([]entity.Finding, error)
}

type observers []Observer

func (o observers) layerStart(layer, size int) {
	for _, observer := range o {
		observer.OnLayerStart(layer, size)
	}
}

func (o observers) urlProcessed(result entity.JobResult) {
	for _, observer := range o {
		observer.OnURLProcessed(result)
	}
}

func (o observers) layerDone(layer int) {
	for _, observer := range o {
		observer.OnLayerDone(layer)
	}
}
