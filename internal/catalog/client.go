// Package catalog は外部カタログシステムとの連携機能を提供する。
// 公開メタデータ文書の書き込み（publish）・削除（retract）と、
// タイトル・ショップタイムゾーンの参照を含む。
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/salesperiod/internal/model"
)

const (
	// MetafieldNamespace は公開文書を格納するメタデータフィールドの名前空間。
	MetafieldNamespace = "sales_period"
	// MetafieldKey は公開文書を格納するメタデータフィールドのキー。
	MetafieldKey = "sales_period"
)

// publishMutation は商品のメタデータフィールドへ公開文書を書き込むGraphQLミューテーション。
// 書き込み後の値をレスポンスで返させ、確認の取れない書き込みを成功扱いしないようにする。
const publishMutation = `
mutation ProductUpdate($productId: ID!, $value: String!) {
  productUpdate(input: {
    id: $productId,
    metafields: [
      {
        namespace: "sales_period",
        key: "sales_period",
        type: "json",
        value: $value
      }
    ]
  }) {
    product {
      metafield(namespace: "sales_period", key: "sales_period") {
        type
        value
      }
    }
  }
}`

// retractMutation はメタデータフィールドを削除するGraphQLミューテーション。
const retractMutation = `
mutation MetafieldsDelete($metafields: [MetafieldIdentifierInput!]!) {
  metafieldsDelete(metafields: $metafields) {
    deletedMetafields {
      key
      namespace
      ownerId
    }
    userErrors {
      field
      message
    }
  }
}`

// itemTitleQuery はカタログ商品のタイトルを取得するGraphQLクエリ。
const itemTitleQuery = `
query ItemTitle($id: ID!) {
  product(id: $id) {
    title
  }
}`

// shopTimezoneQuery はショップのIANAタイムゾーンを取得するGraphQLクエリ。
const shopTimezoneQuery = `
query {
  shop {
    ianaTimezone
  }
}`

// Client は外部カタログシステムのGraphQL管理APIクライアント。
// 1回の呼び出しにつき外部書き込みは1回のみで、同一内容の再公開は冪等。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
	token      string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはSSRF防止機能付きのクライアントを渡すこと
// （エンドポイントはショップごとの設定値であり信頼できない）。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, token string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		token:      token,
	}
}

// CanonicalJSON は公開文書を正準形へ直列化する。
// キー順は固定で、同一文書からは常にバイト単位で同一の出力が得られる。
func CanonicalJSON(doc *model.PublishedDocument) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("公開文書の直列化に失敗しました: %w", err)
	}
	return data, nil
}

// Publish は公開文書をカタログ商品のメタデータフィールドへ書き込む。
// 既存の値は常に全体が上書きされる（マージしない）。
// 外部システムに到達できない・書き込みが拒否された・レスポンスに
// 書き込み後の値が含まれない場合はエラーを返す。
// 戻り値は外部システムに格納された文書のバイト列。
func (c *Client) Publish(ctx context.Context, doc *model.PublishedDocument) ([]byte, error) {
	value, err := CanonicalJSON(doc)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			ProductUpdate struct {
				Product *struct {
					Metafield *struct {
						Type  string `json:"type"`
						Value string `json:"value"`
					} `json:"metafield"`
				} `json:"product"`
			} `json:"productUpdate"`
		} `json:"data"`
	}

	err = c.doGraphQL(ctx, publishMutation, map[string]any{
		"productId": doc.CatalogItemID,
		"value":     string(value),
	}, &resp)
	if err != nil {
		c.logger.Error("公開文書の書き込みに失敗しました",
			slog.String("catalog_item_id", doc.CatalogItemID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	// 確認の取れない書き込みは成功として扱わない
	if resp.Data.ProductUpdate.Product == nil || resp.Data.ProductUpdate.Product.Metafield == nil ||
		resp.Data.ProductUpdate.Product.Metafield.Value == "" {
		c.logger.Error("カタログのレスポンスに書き込み後のメタデータ値が含まれていません",
			slog.String("catalog_item_id", doc.CatalogItemID),
		)
		return nil, fmt.Errorf("カタログのレスポンスにメタデータ値が含まれていません")
	}

	return []byte(resp.Data.ProductUpdate.Product.Metafield.Value), nil
}

// Retract はカタログ商品のメタデータフィールドを削除する。
// フィールドの不在は「制限なし」を意味するため、スケジュール削除時は
// 必ずこの操作で公開文書を取り除く。
func (c *Client) Retract(ctx context.Context, catalogItemID string) error {
	var resp struct {
		Data struct {
			MetafieldsDelete struct {
				DeletedMetafields []struct {
					Key       string `json:"key"`
					Namespace string `json:"namespace"`
					OwnerID   string `json:"ownerId"`
				} `json:"deletedMetafields"`
				UserErrors []struct {
					Field   []string `json:"field"`
					Message string   `json:"message"`
				} `json:"userErrors"`
			} `json:"metafieldsDelete"`
		} `json:"data"`
	}

	err := c.doGraphQL(ctx, retractMutation, map[string]any{
		"metafields": []map[string]string{
			{
				"key":       MetafieldKey,
				"namespace": MetafieldNamespace,
				"ownerId":   catalogItemID,
			},
		},
	}, &resp)
	if err != nil {
		c.logger.Error("公開文書の削除に失敗しました",
			slog.String("catalog_item_id", catalogItemID),
			slog.String("error", err.Error()),
		)
		return err
	}

	if userErrors := resp.Data.MetafieldsDelete.UserErrors; len(userErrors) > 0 {
		messages := make([]string, len(userErrors))
		for i, ue := range userErrors {
			messages[i] = ue.Message
		}
		c.logger.Error("カタログがメタデータ削除を拒否しました",
			slog.String("catalog_item_id", catalogItemID),
			slog.String("user_errors", strings.Join(messages, ", ")),
		)
		return fmt.Errorf("カタログがメタデータ削除を拒否しました: %s", strings.Join(messages, ", "))
	}

	return nil
}

// FetchItemTitle はカタログ商品の現在のタイトルを取得する。
// タイトル再同期で使用する。商品が存在しない場合は空文字列とエラーを返す。
func (c *Client) FetchItemTitle(ctx context.Context, catalogItemID string) (string, error) {
	var resp struct {
		Data struct {
			Product *struct {
				Title string `json:"title"`
			} `json:"product"`
		} `json:"data"`
	}

	if err := c.doGraphQL(ctx, itemTitleQuery, map[string]any{"id": catalogItemID}, &resp); err != nil {
		return "", err
	}
	if resp.Data.Product == nil {
		return "", fmt.Errorf("カタログ商品が見つかりません: %s", catalogItemID)
	}
	return resp.Data.Product.Title, nil
}

// FetchShopTimezone はショップのIANAタイムゾーン識別子を取得する。
// 管理画面プレビューでの「ショップの今日」の導出に使用する。
func (c *Client) FetchShopTimezone(ctx context.Context) (string, error) {
	var resp struct {
		Data struct {
			Shop struct {
				IanaTimezone string `json:"ianaTimezone"`
			} `json:"shop"`
		} `json:"data"`
	}

	if err := c.doGraphQL(ctx, shopTimezoneQuery, nil, &resp); err != nil {
		return "", err
	}
	if resp.Data.Shop.IanaTimezone == "" {
		return "", fmt.Errorf("ショップのタイムゾーンを取得できませんでした")
	}
	return resp.Data.Shop.IanaTimezone, nil
}

// doGraphQL はGraphQLリクエストを1回実行し、レスポンスボディをoutへデコードする。
func (c *Client) doGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	payload := map[string]any{"query": query}
	if variables != nil {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("GraphQLリクエストの直列化に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("カタログAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("カタログAPIがステータス %d を返しました", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return nil
}
