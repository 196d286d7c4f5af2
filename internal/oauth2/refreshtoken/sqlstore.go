/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package refreshtoken

import (
	"fmt"
	"strings"
	"time"

	dbmodel "github.com/bastionlabs/bastion/internal/system/database/model"
	"github.com/bastionlabs/bastion/internal/system/database/provider"
	"github.com/bastionlabs/bastion/internal/system/log"
)

const sqlStoreLoggerComponentName = "RefreshTokenSQLStore"

// SQLStore is the database backed refresh token store.
type SQLStore struct {
	dbProvider provider.DBProviderInterface
}

// NewSQLStore creates a refresh token store backed by the runtime datasource.
func NewSQLStore(dbProvider provider.DBProviderInterface) *SQLStore {
	return &SQLStore{dbProvider: dbProvider}
}

// Insert persists a new refresh token record.
func (s *SQLStore) Insert(token *RefreshToken) error {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))

	dbClient, err := s.dbProvider.GetDBClient()
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return err
	}

	_, err = dbClient.Execute(queryInsertRefreshToken, token.Token, token.ClientID, token.SubjectID,
		strings.Join(token.Scopes, " "), token.FamilyID, token.CodeID, token.IssuedAt.Unix(),
		token.ExpiresAt.Unix(), token.FamilyDeadline.Unix(), token.Consumed, token.Revoked,
		token.Nonce, token.AuthTime.Unix(), strings.Join(token.AMR, " "))
	if err != nil {
		logger.Error("Failed to insert refresh token", log.Error(err))
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

// Get returns the refresh token record with the given value.
func (s *SQLStore) Get(tokenValue string) (*RefreshToken, error) {
	record, err := s.fetch(tokenValue)
	if err != nil {
		return nil, err
	}
	if record.Revoked {
		return nil, ErrTokenRevoked
	}
	return record, nil
}

// Consume marks the token consumed with a conditional update so two
// concurrent redemptions of the same value cannot both succeed.
func (s *SQLStore) Consume(tokenValue string) (*RefreshToken, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))

	dbClient, err := s.dbProvider.GetDBClient()
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return nil, err
	}

	rowsAffected, err := dbClient.Execute(queryConsumeRefreshToken, tokenValue)
	if err != nil {
		logger.Error("Failed to consume refresh token", log.Error(err))
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}

	record, fetchErr := s.fetch(tokenValue)
	if fetchErr != nil {
		return nil, fetchErr
	}
	if rowsAffected == 0 {
		if record.Revoked {
			return nil, ErrTokenRevoked
		}
		return record, ErrTokenConsumed
	}

	record.Consumed = true
	return record, nil
}

// RevokeFamily revokes every token in the given rotation family.
func (s *SQLStore) RevokeFamily(familyID string) error {
	return s.revoke(queryRevokeFamily, familyID)
}

// RevokeByCodeID revokes every token in every family that originated from
// the given authorization code.
func (s *SQLStore) RevokeByCodeID(codeID string) error {
	return s.revoke(queryRevokeByCodeID, codeID)
}

func (s *SQLStore) revoke(query dbmodel.DBQuery, key string) error {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))

	dbClient, err := s.dbProvider.GetDBClient()
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return err
	}

	if _, err := dbClient.Execute(query, key); err != nil {
		logger.Error("Failed to revoke refresh tokens", log.Error(err))
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *SQLStore) fetch(tokenValue string) (*RefreshToken, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))

	dbClient, err := s.dbProvider.GetDBClient()
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return nil, err
	}

	results, err := dbClient.Query(queryGetRefreshToken, tokenValue)
	if err != nil {
		logger.Error("Failed to query refresh token", log.Error(err))
		return nil, fmt.Errorf("failed to query refresh token: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrTokenNotFound
	}

	return buildRefreshTokenFromRow(results[0])
}

func buildRefreshTokenFromRow(row map[string]interface{}) (*RefreshToken, error) {
	record := &RefreshToken{
		Token:          asString(row["token"]),
		ClientID:       asString(row["client_id"]),
		SubjectID:      asString(row["subject_id"]),
		FamilyID:       asString(row["family_id"]),
		CodeID:         asString(row["code_id"]),
		IssuedAt:       time.Unix(asInt64(row["issued_at"]), 0),
		ExpiresAt:      time.Unix(asInt64(row["expires_at"]), 0),
		FamilyDeadline: time.Unix(asInt64(row["family_deadline"]), 0),
		Consumed:       asBool(row["consumed"]),
		Revoked:        asBool(row["revoked"]),
		Nonce:          asString(row["nonce"]),
		AuthTime:       time.Unix(asInt64(row["auth_time"]), 0),
	}
	if scopes := asString(row["scopes"]); scopes != "" {
		record.Scopes = strings.Fields(scopes)
	}
	if amr := asString(row["amr"]); amr != "" {
		record.AMR = strings.Fields(amr)
	}
	if record.Token == "" {
		return nil, fmt.Errorf("malformed refresh token row")
	}
	return record, nil
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func asInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func asBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		return v == "true" || v == "t" || v == "1"
	default:
		return false
	}
}
