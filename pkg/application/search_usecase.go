package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/WangYihang/lazyscan/pkg/domain/service"
	"github.com/sirupsen/logrus"
)

// SearchUseCase scans the hosts returned by a host search, page by page
type SearchUseCase struct {
	searcher  service.HostSearcher
	worker    *Worker
	maxPages  int
	observers observers
	logger    logrus.FieldLogger
}

// NewSearchUseCase creates a search use case. maxPages 0 means no limit.
func NewSearchUseCase(searcher service.HostSearcher, worker *Worker, maxPages int, logger logrus.FieldLogger) *SearchUseCase {
	return &SearchUseCase{
		searcher: searcher,
		worker:   worker,
		maxPages: maxPages,
		logger:   logger,
	}
}

// RegisterObserver registers a progress observer. Each page is reported as
// one layer.
func (uc *SearchUseCase) RegisterObserver(observer Observer) {
	uc.observers = append(uc.observers, observer)
	uc.worker.RegisterObserver(observer)
}

// Execute requests pages until the API rejects the request or returns an
// empty page, and fetches and scans every host in order
func (uc *SearchUseCase) Execute(ctx context.Context, query string) error {
	for page := 1; uc.maxPages == 0 || page <= uc.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		log := uc.logger.WithFields(logrus.Fields{"query": query, "page": page})
		hosts, err := uc.searcher.Search(ctx, query, page)
		if errors.Is(err, service.ErrSearchRejected) {
			log.WithError(err).Info("search finished")
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("search page %d: %w", page, err)
		}
		if len(hosts) == 0 {
			log.Info("search finished")
			return nil
		}

		log.WithField("hosts", len(hosts)).Info("page received")
		layer := page - 1
		uc.observers.layerStart(layer, len(hosts))
		for _, host := range hosts {
			if err := ctx.Err(); err != nil {
				uc.observers.layerDone(layer)
				return err
			}
			if err := uc.worker.Process(ctx, layer, HostURL(host), false); err != nil {
				log.WithError(err).Error("process host")
			}
		}
		uc.observers.layerDone(layer)
	}
	return nil
}

// HostURL returns the URL a host is scanned on: https for port 443, the
// bare address for port 80 or an unknown port. IPv6 addresses are bracketed.
func HostURL(host service.Host) string {
	switch host.Port {
	case 443:
		return "https://" + bracket(host.IP)
	case 0, 80:
		return "http://" + bracket(host.IP)
	default:
		return "http://" + net.JoinHostPort(host.IP, strconv.Itoa(host.Port))
	}
}

func bracket(ip string) string {
	if strings.Contains(ip, ":") {
		return "[" + ip + "]"
	}
	return ip
}
