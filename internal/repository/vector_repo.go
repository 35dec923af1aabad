package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	defaultVectorDimension = 1536
)

// commentPointNamespace makes point ids a pure function of the external
// comment id, so re-analysing a video upserts the same points instead of
// accumulating duplicates.
var commentPointNamespace = uuid.MustParse("9f2c4e18-7a3b-4c61-9d5e-2b8f0a1c6d43")

// VectorConnectionConfig holds configuration for the Qdrant connection
type VectorConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// VectorRepository caches comment embeddings in Qdrant so repeat analyses of
// the same video skip the embedding provider for comments seen before.
type VectorRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewVectorRepository creates a new VectorRepository.
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key)
func NewVectorRepository(cfg *VectorConnectionConfig) (*VectorRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	// TLS is enabled if: APIKey is set OR UseTLS is explicitly true
	var opts []grpc.DialOption
	useTLS := cfg.UseTLS || cfg.APIKey != ""

	if useTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		creds := credentials.NewTLS(tlsConfig)
		opts = append(opts, grpc.WithTransportCredentials(creds))

		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &VectorRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (r *VectorRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist
func (r *VectorRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok {
			if size != uint64(r.vectorDimension) {
				return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
			}
		}
		return nil // Collection exists
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}

	config := info.GetConfig()
	if config == nil {
		return 0, false
	}

	params := config.GetParams()
	if params == nil {
		return 0, false
	}

	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}

	if paramsMap := vectors.GetParamsMap(); paramsMap != nil {
		for _, vectorParams := range paramsMap.GetMap() {
			if vectorParams == nil {
				continue
			}
			if size := vectorParams.GetSize(); size > 0 {
				return size, true
			}
		}
	}

	return 0, false
}

// pointIDForComment derives the deterministic point UUID for a comment.
func pointIDForComment(commentID string) string {
	return uuid.NewSHA1(commentPointNamespace, []byte(commentID)).String()
}

// CommentEmbedding pairs an external comment id with its embedding vector.
type CommentEmbedding struct {
	CommentID string
	VideoID   string
	Vector    []float32
}

// UpsertEmbeddings stores embedding vectors keyed by external comment id.
func (r *VectorRepository) UpsertEmbeddings(ctx context.Context, embeddings []CommentEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(embeddings))
	for _, e := range embeddings {
		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{
					Uuid: pointIDForComment(e.CommentID),
				},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{
						Data: e.Vector,
					},
				},
			},
			Payload: map[string]*pb.Value{
				"comment_id": {Kind: &pb.Value_StringValue{StringValue: e.CommentID}},
				"video_id":   {Kind: &pb.Value_StringValue{StringValue: e.VideoID}},
			},
		})
	}

	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// GetEmbeddings retrieves cached vectors for the given external comment ids.
// Missing comments are simply absent from the returned map.
func (r *VectorRepository) GetEmbeddings(ctx context.Context, commentIDs []string) (map[string][]float32, error) {
	if len(commentIDs) == 0 {
		return map[string][]float32{}, nil
	}

	ids := make([]*pb.PointId, 0, len(commentIDs))
	for _, commentID := range commentIDs {
		ids = append(ids, &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: pointIDForComment(commentID)},
		})
	}

	resp, err := r.pointsClient.Get(ctx, &pb.GetPoints{
		CollectionName: r.collectionName,
		Ids:            ids,
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true},
		},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get points: %w", err)
	}

	result := make(map[string][]float32, len(resp.Result))
	for _, point := range resp.Result {
		payload := point.GetPayload()
		if payload == nil {
			continue
		}
		commentID := payload["comment_id"].GetStringValue()
		if commentID == "" {
			continue
		}
		vectors := point.GetVectors()
		if vectors == nil {
			continue
		}
		vector := vectors.GetVector()
		if vector == nil || len(vector.Data) == 0 {
			continue
		}
		result[commentID] = vector.Data
	}

	return result, nil
}

// DeleteByVideo removes cached embeddings for a video's comments.
func (r *VectorRepository) DeleteByVideo(ctx context.Context, videoID string) error {
	_, err := r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						{
							ConditionOneOf: &pb.Condition_Field{
								Field: &pb.FieldCondition{
									Key: "video_id",
									Match: &pb.Match{
										MatchValue: &pb.Match_Keyword{Keyword: videoID},
									},
								},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}

	return nil
}
