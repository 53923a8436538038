package api

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

const catalogPackage = "storefront.catalog.v1"

// CatalogServiceName is the fully qualified gRPC service name.
const CatalogServiceName = catalogPackage + ".Catalog"

// CatalogServer is the read-only catalog API exposed over gRPC. Requests and
// responses are google.protobuf.Struct messages.
type CatalogServer interface {
	GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCategory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCategories(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type catalogMethod func(CatalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call catalogMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CatalogServiceName + "/" + name}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CatalogServiceDesc describes the catalog service for grpc.Server.
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetProduct", CatalogServer.GetProduct),
		unaryMethod("ListProducts", CatalogServer.ListProducts),
		unaryMethod("GetCategory", CatalogServer.GetCategory),
		unaryMethod("ListCategories", CatalogServer.ListCategories),
		unaryMethod("CheckAvailability", CatalogServer.CheckAvailability),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/catalog/v1/catalog.proto",
}

// catalogProtoFile describes the catalog service so that server reflection
// can resolve it. Every method takes and returns google.protobuf.Struct.
func catalogProtoFile() *descriptorpb.FileDescriptorProto {
	const structType = ".google.protobuf.Struct"
	methods := make([]*descriptorpb.MethodDescriptorProto, len(CatalogServiceDesc.Methods))
	for i, m := range CatalogServiceDesc.Methods {
		methods[i] = &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		}
	}
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(CatalogServiceDesc.Metadata.(string)),
		Package:    proto.String(catalogPackage),
		Dependency: []string{"google/protobuf/struct.proto"},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String(strings.TrimPrefix(CatalogServiceName, catalogPackage+".")),
			Method: methods,
		}},
		Syntax: proto.String("proto3"),
	}
}

func registerCatalogFile(files *protoregistry.Files) error {
	fd, err := protodesc.NewFile(catalogProtoFile(), files)
	if err != nil {
		return fmt.Errorf("failed to build catalog descriptor: %w", err)
	}
	return files.RegisterFile(fd)
}

func init() {
	if err := registerCatalogFile(protoregistry.GlobalFiles); err != nil {
		panic(err)
	}
}

// RegisterCatalogServer registers srv on s.
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// GRPCHandler implements CatalogServer on top of the catalog stores.
type GRPCHandler struct {
	categoryStore store.CategoryStorer
	productStore  store.ProductStorer
	logger        *zap.Logger
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(cs store.CategoryStorer, ps store.ProductStorer, log *zap.Logger) *GRPCHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GRPCHandler{categoryStore: cs, productStore: ps, logger: log}
}

// --- Helper: Error Mapping ---

func (s *GRPCHandler) mapDomainErrorToGrpcStatus(err error, resourceName string) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		code = codes.NotFound
	case domain.KindInvalid:
		code = codes.InvalidArgument
	case domain.KindForbidden:
		code = codes.PermissionDenied
	case domain.KindUnauthorized:
		code = codes.Unauthenticated
	case domain.KindConflict:
		code = codes.AlreadyExists
	}
	if code == codes.Internal {
		s.logger.Error("catalog store operation failed", zap.String("resource", resourceName), zap.Error(err))
		return status.Errorf(codes.Internal, "failed to process %s request", resourceName)
	}
	return status.Error(code, err.Error())
}

// --- Request field helpers ---

func positiveInt(req *structpb.Struct, field string, required bool) (int64, bool, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		if required {
			return 0, false, status.Errorf(codes.InvalidArgument, "%s is required", field)
		}
		return 0, false, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue <= 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue >= math.MaxInt64 {
		return 0, false, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", field)
	}
	return int64(n.NumberValue), true, nil
}

func stringField(req *structpb.Struct, field string) (string, bool) {
	v, ok := req.GetFields()[field]
	if !ok {
		return "", false
	}
	s, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		return "", false
	}
	return s.StringValue, true
}

// decimalField accepts prices as strings or numbers.
func decimalField(req *structpb.Struct, field string) (*decimal.Decimal, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return nil, nil
	}
	var d decimal.Decimal
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		parsed, err := decimal.NewFromString(k.StringValue)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s must be a decimal", field)
		}
		d = parsed
	case *structpb.Value_NumberValue:
		d = decimal.NewFromFloat(k.NumberValue)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a decimal", field)
	}
	if d.IsNegative() {
		return nil, status.Errorf(codes.InvalidArgument, "%s must not be negative", field)
	}
	return &d, nil
}

// --- Conversion ---

func categoryToStruct(c *domain.Category) map[string]interface{} {
	var parent interface{}
	if c.ParentID != nil {
		parent = *c.ParentID
	}
	return map[string]interface{}{
		"id":        c.ID,
		"name":      c.Name,
		"parent_id": parent,
		"is_active": c.IsActive,
	}
}

func productToStruct(p *domain.Product) map[string]interface{} {
	m := map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"description": nil,
		"price":       nil,
		"image_url":   nil,
		"stock":       p.Stock,
		"category_id": p.CategoryID,
		"seller_id":   p.SellerID,
		"rating":      p.Rating,
		"is_active":   p.IsActive,
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Price != nil {
		m["price"] = p.Price.StringFixed(2)
	}
	if p.ImageURL != nil {
		m["image_url"] = *p.ImageURL
	}
	return m
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// --- Category gRPC Methods Implementation ---

func (s *GRPCHandler) GetCategory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	categoryID, _, err := positiveInt(req, "id", true)
	if err != nil {
		return nil, err
	}
	category, err := s.categoryStore.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, s.mapDomainErrorToGrpcStatus(err, "category")
	}
	return newStruct(categoryToStruct(category))
}

func (s *GRPCHandler) ListCategories(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	categories, err := s.categoryStore.ListCategories(ctx)
	if err != nil {
		return nil, s.mapDomainErrorToGrpcStatus(err, "category")
	}
	items := make([]interface{}, len(categories))
	for i := range categories {
		items[i] = categoryToStruct(&categories[i])
	}
	return newStruct(map[string]interface{}{"items": items})
}

// --- Product gRPC Methods Implementation ---

func (s *GRPCHandler) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, _, err := positiveInt(req, "id", true)
	if err != nil {
		return nil, err
	}
	product, err := s.productStore.GetProductByID(ctx, productID)
	if err != nil {
		return nil, s.mapDomainErrorToGrpcStatus(err, "product")
	}
	return newStruct(productToStruct(product))
}

// ListProducts accepts the same filters as the HTTP listing.
func (s *GRPCHandler) ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, pageSize := int64(1), int64(defaultProductPageSize)
	if v, ok, err := positiveInt(req, "page", false); err != nil {
		return nil, err
	} else if ok {
		if v > int64(maxPage(maxPageSize)) {
			return nil, status.Errorf(codes.InvalidArgument, "page must be between 1 and %d", maxPage(maxPageSize))
		}
		page = v
	}
	if v, ok, err := positiveInt(req, "page_size", false); err != nil {
		return nil, err
	} else if ok {
		if v > maxPageSize {
			return nil, status.Errorf(codes.InvalidArgument, "page_size must be between 1 and %d", maxPageSize)
		}
		pageSize = v
	}

	params := store.ListProductsParams{Limit: int(pageSize), Offset: int((page - 1) * pageSize)}
	if search, ok := stringField(req, "search"); ok && search != "" {
		params.Search = &search
	}
	if v, ok, err := positiveInt(req, "category_id", false); err != nil {
		return nil, err
	} else if ok {
		params.CategoryID = &v
	}
	if v, ok, err := positiveInt(req, "seller_id", false); err != nil {
		return nil, err
	} else if ok {
		params.SellerID = &v
	}
	var err error
	if params.MinPrice, err = decimalField(req, "min_price"); err != nil {
		return nil, err
	}
	if params.MaxPrice, err = decimalField(req, "max_price"); err != nil {
		return nil, err
	}
	if v, ok := req.GetFields()["in_stock"]; ok {
		b, isBool := v.GetKind().(*structpb.Value_BoolValue)
		if !isBool {
			return nil, status.Error(codes.InvalidArgument, "in_stock must be a boolean")
		}
		params.InStock = &b.BoolValue
	}

	products, total, err := s.productStore.ListProducts(ctx, params)
	if err != nil {
		return nil, s.mapDomainErrorToGrpcStatus(err, "product")
	}
	items := make([]interface{}, len(products))
	for i := range products {
		items[i] = productToStruct(&products[i])
	}
	return newStruct(map[string]interface{}{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CheckAvailability reports, per requested line, whether the product is
// visible and has enough stock. It does not reserve anything.
func (s *GRPCHandler) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	lines := req.GetFields()["items"].GetListValue().GetValues()
	if len(lines) == 0 {
		return nil, status.Error(codes.InvalidArgument, "items must not be empty")
	}

	allAvailable := true
	results := make([]interface{}, 0, len(lines))
	for i, line := range lines {
		item := line.GetStructValue()
		if item == nil {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d] must be an object", i)
		}
		productID, _, err := positiveInt(item, "product_id", true)
		if err != nil {
			return nil, err
		}
		quantity, _, err := positiveInt(item, "quantity", true)
		if err != nil {
			return nil, err
		}

		var inStock int64
		available := false
		product, err := s.productStore.GetProductByID(ctx, productID)
		switch {
		case err == nil:
			inStock = int64(product.Stock)
			available = inStock >= quantity && product.Price != nil
		case domain.IsKind(err, domain.KindNotFound):
		default:
			return nil, s.mapDomainErrorToGrpcStatus(err, "product")
		}
		allAvailable = allAvailable && available
		results = append(results, map[string]interface{}{
			"product_id": productID,
			"requested":  quantity,
			"in_stock":   inStock,
			"available":  available,
		})
	}
	return newStruct(map[string]interface{}{"available": allAvailable, "items": results})
}

// UnaryLoggingInterceptor logs every unary call with its code and latency.
func UnaryLoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		if code == codes.Internal || code == codes.Unknown {
			log.Error("grpc call completed", append(fields, zap.Error(err))...)
		} else {
			log.Info("grpc call completed", fields...)
		}
		return resp, err
	}
}

// RecoveryInterceptor turns handler panics into Internal errors.
func RecoveryInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("grpc handler panicked", zap.String("method", info.FullMethod), zap.String("panic", fmt.Sprint(p)))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
