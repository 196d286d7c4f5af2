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

package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/bastionlabs/bastion/internal/oauth2/authz/model"
	"github.com/bastionlabs/bastion/internal/system/database/provider"
	"github.com/bastionlabs/bastion/internal/system/log"
)

const codeSQLStoreLoggerComponentName = "AuthorizationCodeSQLStore"

// CodeSQLStore is the database backed authorization code store.
type CodeSQLStore struct {
	dbProvider provider.DBProviderInterface
}

// NewCodeSQLStore creates an authorization code store backed by the runtime
// datasource.
func NewCodeSQLStore(dbProvider provider.DBProviderInterface) *CodeSQLStore {
	return &CodeSQLStore{dbProvider: dbProvider}
}

// Insert persists a newly issued authorization code.
func (s *CodeSQLStore) Insert(code *model.AuthorizationCode) error {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, codeSQLStoreLoggerComponentName))

	dbClient, err := s.dbProvider.GetDBClient()
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return err
	}

	_, err = dbClient.Execute(queryInsertAuthorizationCode, code.CodeID, code.Code, code.ClientID,
		code.SubjectID, code.RedirectURI, strings.Join(code.Scopes, " "), code.CodeChallenge,
		code.CodeChallengeMethod, code.Nonce, code.AuthTime.Unix(), strings.Join(code.AMR, " "),
		code.TimeCreated.Unix(), code.ExpiryTime.Unix(), code.State)
	if err != nil {
		logger.Error("Failed to insert authorization code", log.Error(err))
		return fmt.Errorf("failed to insert authorization code: %w", err)
	}
	return nil
}

// Consume deactivates the code with a conditional update so two concurrent
// redemptions of the same code cannot both succeed.
func (s *CodeSQLStore) Consume(codeValue string) (*model.AuthorizationCode, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, codeSQLStoreLoggerComponentName))

	dbClient, err := s.dbProvider.GetDBClient()
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return nil, err
	}

	rowsAffected, err := dbClient.Execute(queryConsumeAuthorizationCode, codeValue)
	if err != nil {
		logger.Error("Failed to consume authorization code", log.Error(err))
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	record, err := s.fetch(codeValue)
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		switch record.State {
		case model.AuthCodeStateRevoked:
			return nil, ErrCodeRevoked
		case model.AuthCodeStateExpired:
			return nil, ErrCodeExpired
		default:
			return record, ErrCodeConsumed
		}
	}

	// The conditional update won the race, but a code past its TTL is still
	// deterministically rejected.
	if record.IsExpired(time.Now()) {
		if _, err := dbClient.Execute(queryExpireAuthorizationCode, record.CodeID); err != nil {
			logger.Error("Failed to expire authorization code", log.Error(err))
		}
		return nil, ErrCodeExpired
	}

	record.State = model.AuthCodeStateInactive
	return record, nil
}

func (s *CodeSQLStore) fetch(codeValue string) (*model.AuthorizationCode, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, codeSQLStoreLoggerComponentName))

	dbClient, err := s.dbProvider.GetDBClient()
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return nil, err
	}

	results, err := dbClient.Query(queryGetAuthorizationCode, codeValue)
	if err != nil {
		logger.Error("Failed to query authorization code", log.Error(err))
		return nil, fmt.Errorf("failed to query authorization code: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrCodeNotFound
	}

	row := results[0]
	record := &model.AuthorizationCode{
		CodeID:              asString(row["code_id"]),
		Code:                asString(row["authorization_code"]),
		ClientID:            asString(row["client_id"]),
		SubjectID:           asString(row["subject_id"]),
		RedirectURI:         asString(row["callback_url"]),
		CodeChallenge:       asString(row["code_challenge"]),
		CodeChallengeMethod: asString(row["code_challenge_method"]),
		Nonce:               asString(row["nonce"]),
		AuthTime:            time.Unix(asInt64(row["auth_time"]), 0),
		TimeCreated:         time.Unix(asInt64(row["time_created"]), 0),
		ExpiryTime:          time.Unix(asInt64(row["expiry_time"]), 0),
		State:               asString(row["state"]),
	}
	if scopes := asString(row["scopes"]); scopes != "" {
		record.Scopes = strings.Fields(scopes)
	}
	if amr := asString(row["amr"]); amr != "" {
		record.AMR = strings.Fields(amr)
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
