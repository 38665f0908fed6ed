package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/auirah-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// Create inserts u. Email and phone uniqueness is checked against the GSIs first.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.ensureUnique(ctx, u.UserID, u.Email, u.Phone); err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if err != nil {
		return conditionFailed(err, fmt.Errorf("user id taken: %w", domain.ErrConflict))
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, notFound("user")
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail resolves the address through the GSI, then re-reads the base item
// consistently so the returned version is current.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := r.queryGSI(ctx, indexEmail, fieldEmail, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, u.UserID)
}

// List scans the table and applies filtering, ordering and paging in memory.
func (r *UserRepo) List(ctx context.Context, q domain.UserQuery) ([]domain.User, int, error) {
	var all []domain.User
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, 0, err
		}
		var page []domain.User
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, 0, err
		}
		for i := range page {
			if q.Matches(&page[i]) {
				all = append(all, page[i])
			}
		}
	}
	domain.SortUsers(all)
	return domain.Page(all, q.Offset, q.Limit), len(all), nil
}

// Update applies the profile changes. OTP attributes are never part of this write.
func (r *UserRepo) Update(ctx context.Context, userID string, c domain.UserChanges) (*domain.User, error) {
	current, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.Empty() {
		return current, nil
	}
	var email string
	if c.Email != nil {
		email = domain.NormalizeEmail(*c.Email)
		c.Email = &email
	}
	if err := r.ensureUnique(ctx, userID, email, c.Phone); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{fieldUpdatedAt: time.Now().UTC()}
	if c.Name != nil {
		updates["name"] = *c.Name
	}
	if c.Email != nil {
		updates[fieldEmail] = *c.Email
	}
	if c.Phone != nil {
		updates[fieldPhone] = *c.Phone
	}
	if c.Role != nil {
		updates["role"] = *c.Role
	}
	if c.PasswordHash != nil {
		updates["password_hash"] = *c.PasswordHash
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, conditionFailed(err, notFound("user"))
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Attributes, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveOTPState writes the four OTP attributes together, conditional on the
// stored version matching expectedVersion. A mismatch returns domain.ErrConflict.
func (r *UserRepo) SaveOTPState(ctx context.Context, userID string, expectedVersion int64, st domain.OTPState) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldOTPSecret:     st.Secret,
		fieldOTPExpiresAt:  st.ExpiresAt,
		fieldOTPVerifiedAt: st.VerifiedAt,
		fieldOTPAttempts:   st.Attempts,
		fieldVersion:       expectedVersion + 1,
		fieldUpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	ev, err := attributevalue.Marshal(expectedVersion)
	if err != nil {
		return err
	}
	ue = ue.withCondition(
		map[string]string{"#ver": fieldVersion},
		map[string]types.AttributeValue{":ev": ev},
	)
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#ver = :ev"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return conditionFailed(err, fmt.Errorf("otp state changed concurrently: %w", domain.ErrConflict))
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldUserID, userID),
		ConditionExpression: aws.String("attribute_exists(user_id)"),
	})
	if err != nil {
		return conditionFailed(err, notFound("user"))
	}
	return nil
}

func (r *UserRepo) ensureUnique(ctx context.Context, userID, email string, phone *string) error {
	if email != "" {
		if err := r.checkUnique(ctx, userID, indexEmail, fieldEmail, email, "The email has already been taken."); err != nil {
			return err
		}
	}
	if phone != nil && *phone != "" {
		if err := r.checkUnique(ctx, userID, indexPhone, fieldPhone, *phone, "The phone number has already been taken."); err != nil {
			return err
		}
	}
	return nil
}

// checkUnique fails when another account holds value. A failed lookup is
// returned as is; only a missing row counts as free.
func (r *UserRepo) checkUnique(ctx context.Context, userID, index, attr, value, taken string) error {
	other, err := r.queryGSI(ctx, index, attr, value)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check %s uniqueness: %w", attr, err)
	case other.UserID != userID:
		return domain.Errorf(domain.ErrConflict, "%s", taken)
	}
	return nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, notFound("user")
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
