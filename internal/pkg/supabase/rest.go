package supabase

import (
	"context"
	"fmt"
)

// Query PostgREST 行查询构造器。只覆盖客户端用到的等值/排序/限量子集。
type Query struct {
	c       *Client
	table   string
	filters map[string]string
	order   string
	limit   int
}

// From 指定目标表
func (c *Client) From(table string) *Query {
	return &Query{
		c:       c,
		table:   table,
		filters: make(map[string]string),
	}
}

// Eq 追加等值过滤
func (q *Query) Eq(column, value string) *Query {
	q.filters[column] = "eq." + value
	return q
}

// Order 指定排序列
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = column + "." + dir
	return q
}

// Limit 限制返回行数
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) params() map[string]string {
	params := make(map[string]string, len(q.filters)+2)
	for col, f := range q.filters {
		params[col] = f
	}
	if q.order != "" {
		params["order"] = q.order
	}
	if q.limit > 0 {
		params["limit"] = fmt.Sprintf("%d", q.limit)
	}
	return params
}

// Select 查询行并反序列化到 dest（切片指针）
func (q *Query) Select(ctx context.Context, dest any) error {
	resp, err := q.c.http.R().
		SetContext(ctx).
		SetQueryParams(q.params()).
		SetResult(dest).
		Get("/rest/v1/" + q.table)
	if err != nil {
		return err
	}
	return wrapRestError(resp, false)
}

// Insert 插入一行。dest 非 nil 时要求服务端回读插入结果（写确认即乐观回显依据）。
func (q *Query) Insert(ctx context.Context, row any, dest any) error {
	req := q.c.http.R().
		SetContext(ctx).
		SetBody(row)
	if dest != nil {
		req.SetHeader("Prefer", "return=representation").SetResult(dest)
	}
	resp, err := req.Post("/rest/v1/" + q.table)
	if err != nil {
		return err
	}
	return wrapRestError(resp, true)
}

// Update 按过滤条件更新，dest 非 nil 时回读更新后的行
func (q *Query) Update(ctx context.Context, patch any, dest any) error {
	req := q.c.http.R().
		SetContext(ctx).
		SetQueryParams(q.params()).
		SetBody(patch)
	if dest != nil {
		req.SetHeader("Prefer", "return=representation").SetResult(dest)
	}
	resp, err := req.Patch("/rest/v1/" + q.table)
	if err != nil {
		return err
	}
	return wrapRestError(resp, true)
}

// Delete 按过滤条件删除
func (q *Query) Delete(ctx context.Context) error {
	resp, err := q.c.http.R().
		SetContext(ctx).
		SetQueryParams(q.params()).
		Delete("/rest/v1/" + q.table)
	if err != nil {
		return err
	}
	return wrapRestError(resp, true)
}
