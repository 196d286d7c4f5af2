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

import dbmodel "github.com/bastionlabs/bastion/internal/system/database/model"

// queryInsertRefreshToken is the query to insert a new refresh token.
var queryInsertRefreshToken = dbmodel.DBQuery{
	ID: "RFQ-00001",
	Query: "INSERT INTO IDN_OAUTH2_REFRESH_TOKEN (TOKEN, CLIENT_ID, SUBJECT_ID, SCOPES, FAMILY_ID, " +
		"CODE_ID, ISSUED_AT, EXPIRES_AT, FAMILY_DEADLINE, CONSUMED, REVOKED, NONCE, AUTH_TIME, AMR) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
}

// queryGetRefreshToken is the query to retrieve a refresh token by its value.
var queryGetRefreshToken = dbmodel.DBQuery{
	ID: "RFQ-00002",
	Query: "SELECT TOKEN, CLIENT_ID, SUBJECT_ID, SCOPES, FAMILY_ID, CODE_ID, ISSUED_AT, EXPIRES_AT, " +
		"FAMILY_DEADLINE, CONSUMED, REVOKED, NONCE, AUTH_TIME, AMR FROM IDN_OAUTH2_REFRESH_TOKEN " +
		"WHERE TOKEN = $1",
}

// queryConsumeRefreshToken marks a token consumed only if it is still live.
// The conditional update is the atomic check-and-consume.
var queryConsumeRefreshToken = dbmodel.DBQuery{
	ID: "RFQ-00003",
	Query: "UPDATE IDN_OAUTH2_REFRESH_TOKEN SET CONSUMED = TRUE WHERE TOKEN = $1 " +
		"AND CONSUMED = FALSE AND REVOKED = FALSE",
}

// queryRevokeFamily is the query to revoke every token in a rotation family.
var queryRevokeFamily = dbmodel.DBQuery{
	ID:    "RFQ-00004",
	Query: "UPDATE IDN_OAUTH2_REFRESH_TOKEN SET REVOKED = TRUE WHERE FAMILY_ID = $1",
}

// queryRevokeByCodeID is the query to revoke every token descending from an
// authorization code.
var queryRevokeByCodeID = dbmodel.DBQuery{
	ID:    "RFQ-00005",
	Query: "UPDATE IDN_OAUTH2_REFRESH_TOKEN SET REVOKED = TRUE WHERE CODE_ID = $1",
}
