package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/quickcart/catalog-api/internal/config"
	"github.com/quickcart/catalog-api/internal/models"
)

// usernameIndex is the GSI on the users table keyed by username.
const usernameIndex = "username-index"

// DynamoStore persists users and products in two DynamoDB tables. Users are
// keyed by user_id with a username GSI; products are keyed by product_id.
//
// List and search scan the products table and page in process: DynamoDB has
// no native offset pagination or match counting, and the catalog is small
// enough that a scan per read stays within a single-digit page count.
type DynamoStore struct {
	client        *dynamodb.Client
	usersTable    string
	productsTable string
	logger        *logrus.Logger
}

func NewDynamoStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*DynamoStore, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AWS.Profile != "" {
		// Use a named profile for local development
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithSharedConfigProfile(cfg.AWS.Profile),
		)
	} else {
		// IRSA or instance credentials resolved by the SDK chain
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDB.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
		}
	})

	logger.WithFields(logrus.Fields{
		"region":         cfg.DynamoDB.Region,
		"users_table":    cfg.DynamoDB.UsersTableName,
		"products_table": cfg.DynamoDB.ProductsTableName,
	}).Info("DynamoDB store initialized")

	return &DynamoStore{
		client:        client,
		usersTable:    cfg.DynamoDB.UsersTableName,
		productsTable: cfg.DynamoDB.ProductsTableName,
		logger:        logger,
	}, nil
}

func (s *DynamoStore) CreateUser(ctx context.Context, user *models.User) error {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("marshal user failed: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.usersTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrUserExists
		}
		return fmt.Errorf("put user failed: %w", err)
	}

	return nil
}

func (s *DynamoStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.usersTable),
		IndexName:              aws.String(usernameIndex),
		KeyConditionExpression: aws.String("username = :username"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":username": &types.AttributeValueMemberS{Value: username},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query user failed: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Items[0], &user); err != nil {
		return nil, fmt.Errorf("unmarshal user failed: %w", err)
	}

	return &user, nil
}

func (s *DynamoStore) CreateProduct(ctx context.Context, product *models.Product) error {
	item, err := attributevalue.MarshalMap(product)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.productsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(product_id)"),
	})
	if err != nil {
		return fmt.Errorf("put product failed: %w", err)
	}

	return nil
}

func (s *DynamoStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.productsTable),
		Key:       productKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get product failed: %w", err)
	}
	if result.Item == nil {
		return nil, ErrProductNotFound
	}

	var product models.Product
	if err := attributevalue.UnmarshalMap(result.Item, &product); err != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err)
	}

	return &product, nil
}

func (s *DynamoStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	// Creation time is immutable; carry it over from the stored record so a
	// full-replace put keeps the listing order stable.
	existing, err := s.GetProduct(ctx, product.ProductID)
	if err != nil {
		return err
	}
	product.CreatedAt = existing.CreatedAt

	item, err := attributevalue.MarshalMap(product)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.productsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(product_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("put product failed: %w", err)
	}

	return nil
}

func (s *DynamoStore) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.productsTable),
		Key:                 productKey(id),
		ConditionExpression: aws.String("attribute_exists(product_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product failed: %w", err)
	}

	return nil
}

func (s *DynamoStore) ListProducts(ctx context.Context, page PageRequest) (*models.ProductPage, error) {
	items, err := s.scanProducts(ctx)
	if err != nil {
		return nil, err
	}
	return buildPage(items, page), nil
}

func (s *DynamoStore) SearchProducts(ctx context.Context, query string, page PageRequest) (*models.ProductPage, error) {
	items, err := s.scanProducts(ctx)
	if err != nil {
		return nil, err
	}
	return buildPage(filterProducts(items, query), page), nil
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.productsTable),
	})
	if err != nil {
		return fmt.Errorf("dynamodb unavailable: %w", err)
	}
	return nil
}

// scanProducts reads the whole catalog in creation order
func (s *DynamoStore) scanProducts(ctx context.Context) ([]models.Product, error) {
	var items []models.Product

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.productsTable),
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan products failed: %w", err)
		}

		var batch []models.Product
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal products failed: %w", err)
		}
		items = append(items, batch...)
	}

	sortByCreation(items)
	return items, nil
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"product_id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
