package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/auirah-api/internal/domain"
)

// TaskRepo provides typed DynamoDB operations for the tasks table.
type TaskRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTaskRepo(client *dynamodb.Client, tableName string) *TaskRepo {
	return &TaskRepo{client: client, tableName: tableName}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	if err := r.ensureSlugFree(ctx, t.TaskID, t.Slug); err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(task_id)"),
	})
	if err != nil {
		return conditionFailed(err, fmt.Errorf("task id taken: %w", domain.ErrConflict))
	}
	return nil
}

func (r *TaskRepo) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldTaskID, taskID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, notFound("task")
	}
	var t domain.Task
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// List scans the table and applies filtering, ordering and paging in memory.
func (r *TaskRepo) List(ctx context.Context, q domain.TaskQuery) ([]domain.Task, int, error) {
	all, err := r.scan(ctx, q.Matches)
	if err != nil {
		return nil, 0, err
	}
	domain.SortTasks(all, q.Order)
	return domain.Page(all, q.Offset, q.Limit), len(all), nil
}

func (r *TaskRepo) Update(ctx context.Context, taskID string, c domain.TaskChanges) (*domain.Task, error) {
	if c.Slug != nil {
		if err := r.ensureSlugFree(ctx, taskID, *c.Slug); err != nil {
			return nil, err
		}
	}
	updates := map[string]interface{}{fieldUpdatedAt: time.Now().UTC()}
	if c.Title != nil {
		updates["title"] = *c.Title
	}
	if c.Slug != nil {
		updates[fieldSlug] = *c.Slug
	}
	if c.Description != nil {
		updates["description"] = *c.Description
	}
	if c.Status != nil {
		updates["status"] = *c.Status
	}
	if c.Priority != nil {
		updates["priority"] = *c.Priority
	}
	if c.DueDate != nil {
		updates["due_date"] = *c.DueDate
	}
	if c.CompletedAt != nil {
		updates["completed_at"] = *c.CompletedAt
	}
	if c.OwnerID != nil {
		updates[fieldOwnerID] = *c.OwnerID
	}
	if c.AssigneeID != nil {
		updates[fieldAssignee] = *c.AssigneeID
	}
	if c.Labels != nil {
		updates["labels"] = c.Labels
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldTaskID, taskID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(task_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, conditionFailed(err, notFound("task"))
	}
	var t domain.Task
	if err := attributevalue.UnmarshalMap(out.Attributes, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Delete(ctx context.Context, taskID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldTaskID, taskID),
		ConditionExpression: aws.String("attribute_exists(task_id)"),
	})
	if err != nil {
		return conditionFailed(err, notFound("task"))
	}
	return nil
}

// DeleteByOwner removes every task owned by userID.
func (r *TaskRepo) DeleteByOwner(ctx context.Context, userID string) error {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexOwner),
		KeyConditionExpression: aws.String("owner_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			tid, ok := item[fieldTaskID].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(r.tableName),
				Key:       strKey(fieldTaskID, tid.Value),
			}); err != nil {
				return fmt.Errorf("delete task %s: %w", tid.Value, err)
			}
		}
	}
	return nil
}

// ClearAssignee unassigns userID from every task that names them.
func (r *TaskRepo) ClearAssignee(ctx context.Context, userID string) error {
	assigned, err := r.scan(ctx, domain.TaskQuery{AssigneeID: userID}.Matches)
	if err != nil {
		return err
	}
	for _, t := range assigned {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                aws.String(r.tableName),
			Key:                      strKey(fieldTaskID, t.TaskID),
			UpdateExpression:         aws.String("REMOVE #a"),
			ExpressionAttributeNames: map[string]string{"#a": fieldAssignee},
		})
		if err != nil {
			return fmt.Errorf("unassign task %s: %w", t.TaskID, err)
		}
	}
	return nil
}

func (r *TaskRepo) scan(ctx context.Context, keep func(*domain.Task) bool) ([]domain.Task, error) {
	var all []domain.Task
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.Task
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		for i := range page {
			if keep(&page[i]) {
				all = append(all, page[i])
			}
		}
	}
	return all, nil
}

func (r *TaskRepo) ensureSlugFree(ctx context.Context, taskID, slug string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexSlug),
		KeyConditionExpression:    aws.String("#s = :s"),
		ExpressionAttributeNames:  map[string]string{"#s": fieldSlug},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: slug}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return err
	}
	for _, item := range out.Items {
		if tid, ok := item[fieldTaskID].(*types.AttributeValueMemberS); ok && tid.Value != taskID {
			return domain.Errorf(domain.ErrConflict, "The slug has already been taken.")
		}
	}
	return nil
}
