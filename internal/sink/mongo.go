package sink

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"NetScopeGo/internal/portscan"
)

const (
	scansCollection     = "scans"
	hostsCollection     = "hosts"
	mongoConnectTimeout = 10 * time.Second
)

type portDocument struct {
	Port     int    `bson:"port"`
	Protocol string `bson:"protocol"`
	State    string `bson:"state"`
	Service  string `bson:"service"`
}

type hostDocument struct {
	ScanID    string         `bson:"scan_id"`
	Target    string         `bson:"target"`
	IP        string         `bson:"ip"`
	Timestamp time.Time      `bson:"timestamp"`
	OpenPorts []portDocument `bson:"open_ports"`
	TotalOpen int            `bson:"total_open_ports"`
}

// scanDocument 每次扫描一条, 没有存活主机时也会写入
type scanDocument struct {
	ScanID     string    `bson:"_id"`
	Target     string    `bson:"target"`
	StartedAt  time.Time `bson:"started_at"`
	FinishedAt time.Time `bson:"finished_at"`
	HostCount  int       `bson:"host_count"`
	OpenPorts  int       `bson:"total_open_ports"`
}

// Mongo 每台主机一个文档, 同一次扫描共享 scan_id
type Mongo struct {
	client   *mongo.Client
	database string
	uri      string
	opts     Options
	logger   *zap.Logger
}

func OpenMongo(ctx context.Context, uri string, opts Options) (*Mongo, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	database := opts.MongoDatabase
	if database == "" {
		database = DefaultMongoDatabase
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(mongoConnectTimeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongodb: %w", ErrOutputWrite, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping mongodb: %w", ErrOutputWrite, err)
	}
	return &Mongo{
		client:   client,
		database: database,
		uri:      uri,
		opts:     opts,
		logger:   opts.Logger.With(zap.String("sink", "mongodb")),
	}, nil
}

func (m *Mongo) Write(ctx context.Context, results *portscan.ScanResults) error {
	if results == nil {
		results = portscan.NewScanResults()
	}
	scanID := uuid.NewString()
	db := m.client.Database(m.database)

	scan := newScanDocument(scanID, m.opts, results, time.Now())
	if _, err := db.Collection(scansCollection).InsertOne(ctx, scan); err != nil {
		return fmt.Errorf("%w: insert scan: %w", ErrOutputWrite, err)
	}

	inserted := 0
	if results.Len() > 0 {
		res, err := db.Collection(hostsCollection).InsertMany(ctx, hostDocuments(scanID, m.opts.Target, results))
		if err != nil {
			return fmt.Errorf("%w: insert hosts: %w", ErrOutputWrite, err)
		}
		inserted = len(res.InsertedIDs)
	}
	m.logger.Debug("results written",
		zap.String("database", m.database),
		zap.String("scan_id", scanID),
		zap.Int("documents", inserted))
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Describe 隐去 URI 中的密码
func (m *Mongo) Describe() string {
	return redactURI(m.uri) + "/" + m.database
}

func newScanDocument(scanID string, opts Options, results *portscan.ScanResults, finished time.Time) scanDocument {
	return scanDocument{
		ScanID:     scanID,
		Target:     opts.Target,
		StartedAt:  opts.StartedAt,
		FinishedAt: finished,
		HostCount:  results.Len(),
		OpenPorts:  results.TotalOpenPorts(),
	}
}

func hostDocuments(scanID, target string, results *portscan.ScanResults) []interface{} {
	docs := make([]interface{}, 0, results.Len())
	for ip, h := range results.All() {
		ports := make([]portDocument, 0, len(h.OpenPorts))
		for _, p := range h.OpenPorts {
			ports = append(ports, portDocument{
				Port:     p.Port,
				Protocol: portscan.Protocol,
				State:    string(p.State),
				Service:  p.Service,
			})
		}
		docs = append(docs, hostDocument{
			ScanID:    scanID,
			Target:    target,
			IP:        ip,
			Timestamp: h.Timestamp,
			OpenPorts: ports,
			TotalOpen: h.TotalOpen,
		})
	}
	return docs
}

func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "mongodb"
	}
	u.Path = ""
	u.RawQuery = ""
	return u.Redacted()
}
