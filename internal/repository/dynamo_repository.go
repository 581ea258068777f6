package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/iliyamo/receipt-booklet-ledger/internal/booklet"
	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
)

// Item kinds stored in the single DynamoDB table.
const (
	kindDonation = "donation"
	kindLocation = "location"
)

// batchWriteLimit is the DynamoDB maximum number of requests per BatchWriteItem.
const batchWriteLimit = 25

// dynamoAPI is the subset of *dynamodb.Client used by the repository.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// donationItem is the stored shape of a donation.  Every donation is paired
// with a location guard item so the (block, floor, quarter) triple is unique
// in the same way the serial is: both items are written in one transaction
// conditioned on their keys being absent.
type donationItem struct {
	PK            string    `dynamodbav:"pk"`
	Kind          string    `dynamodbav:"kind"`
	BookletNumber int       `dynamodbav:"booklet_number"`
	SerialNumber  int       `dynamodbav:"serial_number"`
	Block         string    `dynamodbav:"block"`
	Floor         int       `dynamodbav:"floor"`
	QuarterNumber int       `dynamodbav:"quarter_number"`
	Amount        float64   `dynamodbav:"amount"`
	PaymentMode   string    `dynamodbav:"payment_mode"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
}

type locationItem struct {
	PK           string `dynamodbav:"pk"`
	Kind         string `dynamodbav:"kind"`
	SerialNumber int    `dynamodbav:"serial_number"`
}

func donationKey(serial int) string { return "DONATION#" + strconv.Itoa(serial) }

func locationKey(block string, floor, quarter int) string {
	return fmt.Sprintf("LOCATION#%s#%d#%d", booklet.NormalizeBlock(block), floor, quarter)
}

func pkAttr(pk string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{"pk": &dynamodbtypes.AttributeValueMemberS{Value: pk}}
}

func (it donationItem) toModel() model.Donation {
	return model.Donation{
		BookletNumber: it.BookletNumber,
		SerialNumber:  it.SerialNumber,
		Block:         it.Block,
		Floor:         it.Floor,
		QuarterNumber: it.QuarterNumber,
		Amount:        it.Amount,
		PaymentMode:   it.PaymentMode,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
}

// DonationDynamoRepo implements DonationStore on a DynamoDB table whose
// partition key is the string attribute "pk".
type DonationDynamoRepo struct {
	client    dynamoAPI
	tableName string
	now       func() time.Time
}

// NewDonationDynamoRepo creates a DynamoDB donation repository.
func NewDonationDynamoRepo(client *dynamodb.Client, tableName string) *DonationDynamoRepo {
	return newDonationDynamoRepo(client, tableName)
}

func newDonationDynamoRepo(client dynamoAPI, tableName string) *DonationDynamoRepo {
	return &DonationDynamoRepo{
		client:    client,
		tableName: tableName,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureTable creates the table with on-demand billing when it does not exist.
func (r *DonationDynamoRepo) EnsureTable(ctx context.Context) error {
	_, err := r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.tableName),
		AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamodbtypes.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: dynamodbtypes.KeyTypeHash},
		},
		BillingMode: dynamodbtypes.BillingModePayPerRequest,
	})
	var inUse *dynamodbtypes.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("create table %s: %w", r.tableName, err)
	}
	return nil
}

// Create writes the donation and its location guard atomically.
func (r *DonationDynamoRepo) Create(ctx context.Context, d *model.Donation) error {
	now := r.now()
	item := donationItem{
		PK:            donationKey(d.SerialNumber),
		Kind:          kindDonation,
		BookletNumber: d.BookletNumber,
		SerialNumber:  d.SerialNumber,
		Block:         d.Block,
		Floor:         d.Floor,
		QuarterNumber: d.QuarterNumber,
		Amount:        d.Amount,
		PaymentMode:   d.PaymentMode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal donation: %w", err)
	}
	guard, err := attributevalue.MarshalMap(locationItem{
		PK:           locationKey(d.Block, d.Floor, d.QuarterNumber),
		Kind:         kindLocation,
		SerialNumber: d.SerialNumber,
	})
	if err != nil {
		return fmt.Errorf("marshal location guard: %w", err)
	}

	absent := aws.String("attribute_not_exists(pk)")
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []dynamodbtypes.TransactWriteItem{
			{Put: &dynamodbtypes.Put{TableName: aws.String(r.tableName), Item: av, ConditionExpression: absent}},
			{Put: &dynamodbtypes.Put{TableName: aws.String(r.tableName), Item: guard, ConditionExpression: absent}},
		},
	})
	if err != nil {
		return classifyCancellation(err)
	}
	d.CreatedAt, d.UpdatedAt = now, now
	return nil
}

// classifyCancellation maps a failed condition on the donation item (index 0)
// to ErrDuplicateSerial and on the location guard (index 1) to
// ErrDuplicateLocation.
func classifyCancellation(err error) error {
	var tce *dynamodbtypes.TransactionCanceledException
	if !errors.As(err, &tce) {
		return fmt.Errorf("transact write: %w", err)
	}
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
			continue
		}
		if i == 0 {
			return ErrDuplicateSerial
		}
		return ErrDuplicateLocation
	}
	return fmt.Errorf("transact write: %w", err)
}

func (r *DonationDynamoRepo) scanDonations(ctx context.Context, filter string, values map[string]dynamodbtypes.AttributeValue) ([]donationItem, error) {
	names := map[string]string{"#k": "kind"}
	expr := "#k = :kind"
	if filter != "" {
		expr += " AND " + filter
		names["#s"] = "serial_number"
	}
	vals := map[string]dynamodbtypes.AttributeValue{":kind": &dynamodbtypes.AttributeValueMemberS{Value: kindDonation}}
	for k, v := range values {
		vals[k] = v
	}

	var items []donationItem
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: vals,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan donations: %w", err)
		}
		var batch []donationItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal donations: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

// List returns all donations, newest first.
func (r *DonationDynamoRepo) List(ctx context.Context) ([]model.Donation, error) {
	items, err := r.scanDonations(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.Donation, 0, len(items))
	for _, it := range items {
		out = append(out, it.toModel())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SerialNumber > out[j].SerialNumber
	})
	return out, nil
}

// GetBySerial fetches the donation item for serial.
func (r *DonationDynamoRepo) GetBySerial(ctx context.Context, serial int) (*model.Donation, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            pkAttr(donationKey(serial)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}
	if out.Item == nil {
		return nil, ErrDonationNotFound
	}
	var it donationItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal donation: %w", err)
	}
	d := it.toModel()
	return &d, nil
}

// ExistsLocation checks for the location guard item.
func (r *DonationDynamoRepo) ExistsLocation(ctx context.Context, block string, floor, quarter int) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  pkAttr(locationKey(block, floor, quarter)),
		ProjectionExpression: aws.String("pk"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get location: %w", err)
	}
	return out.Item != nil, nil
}

// SerialsInRange returns the used serials between start and end inclusive.
func (r *DonationDynamoRepo) SerialsInRange(ctx context.Context, start, end int) ([]int, error) {
	items, err := r.scanDonations(ctx, "#s BETWEEN :start AND :end", map[string]dynamodbtypes.AttributeValue{
		":start": &dynamodbtypes.AttributeValueMemberN{Value: strconv.Itoa(start)},
		":end":   &dynamodbtypes.AttributeValueMemberN{Value: strconv.Itoa(end)},
	})
	if err != nil {
		return nil, err
	}
	serials := make([]int, 0, len(items))
	for _, it := range items {
		serials = append(serials, it.SerialNumber)
	}
	sort.Ints(serials)
	return serials, nil
}

// TotalAmount sums the amount of every donation.
func (r *DonationDynamoRepo) TotalAmount(ctx context.Context) (float64, error) {
	items, err := r.scanDonations(ctx, "", nil)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return total, nil
}

// DeleteBySerial removes the donation and frees its location.
func (r *DonationDynamoRepo) DeleteBySerial(ctx context.Context, serial int) error {
	d, err := r.GetBySerial(ctx, serial)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []dynamodbtypes.TransactWriteItem{
			{Delete: &dynamodbtypes.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 pkAttr(donationKey(serial)),
				ConditionExpression: aws.String("attribute_exists(pk)"),
			}},
			{Delete: &dynamodbtypes.Delete{
				TableName: aws.String(r.tableName),
				Key:       pkAttr(locationKey(d.Block, d.Floor, d.QuarterNumber)),
			}},
		},
	})
	if err != nil {
		var tce *dynamodbtypes.TransactionCanceledException
		if errors.As(err, &tce) {
			// removed concurrently
			return ErrDonationNotFound
		}
		return fmt.Errorf("delete donation: %w", err)
	}
	return nil
}

// DeleteAll removes every donation and location guard.
func (r *DonationDynamoRepo) DeleteAll(ctx context.Context) (int64, error) {
	var (
		keys      []map[string]dynamodbtypes.AttributeValue
		donations int64
	)
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String("pk, #k"),
		ExpressionAttributeNames: map[string]string{"#k": "kind"},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("scan keys: %w", err)
		}
		for _, item := range page.Items {
			if k, ok := item["kind"].(*dynamodbtypes.AttributeValueMemberS); ok && k.Value == kindDonation {
				donations++
			}
			keys = append(keys, map[string]dynamodbtypes.AttributeValue{"pk": item["pk"]})
		}
	}

	for start := 0; start < len(keys); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(keys) {
			end = len(keys)
		}
		reqs := make([]dynamodbtypes.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			reqs = append(reqs, dynamodbtypes.WriteRequest{DeleteRequest: &dynamodbtypes.DeleteRequest{Key: k}})
		}
		if err := r.batchDelete(ctx, reqs); err != nil {
			return 0, err
		}
	}
	return donations, nil
}

// batchDelete submits reqs and resubmits whatever DynamoDB reports as
// unprocessed, backing off between attempts.
func (r *DonationDynamoRepo) batchDelete(ctx context.Context, reqs []dynamodbtypes.WriteRequest) error {
	backoff := 50 * time.Millisecond
	pending := map[string][]dynamodbtypes.WriteRequest{r.tableName: reqs}
	for len(pending[r.tableName]) > 0 {
		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("batch delete: %w", err)
		}
		pending = out.UnprocessedItems
		if len(pending[r.tableName]) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return nil
}
