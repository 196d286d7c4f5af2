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

import dbmodel "github.com/bastionlabs/bastion/internal/system/database/model"

// queryInsertAuthorizationCode is the query to insert a new authorization code.
var queryInsertAuthorizationCode = dbmodel.DBQuery{
	ID: "AZQ-00001",
	Query: "INSERT INTO IDN_OAUTH2_AUTHZ_CODE (CODE_ID, AUTHORIZATION_CODE, CLIENT_ID, SUBJECT_ID, " +
		"CALLBACK_URL, SCOPES, CODE_CHALLENGE, CODE_CHALLENGE_METHOD, NONCE, AUTH_TIME, AMR, " +
		"TIME_CREATED, EXPIRY_TIME, STATE) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
}

// queryGetAuthorizationCode is the query to retrieve an authorization code by value.
var queryGetAuthorizationCode = dbmodel.DBQuery{
	ID: "AZQ-00002",
	Query: "SELECT CODE_ID, AUTHORIZATION_CODE, CLIENT_ID, SUBJECT_ID, CALLBACK_URL, SCOPES, " +
		"CODE_CHALLENGE, CODE_CHALLENGE_METHOD, NONCE, AUTH_TIME, AMR, TIME_CREATED, EXPIRY_TIME, " +
		"STATE FROM IDN_OAUTH2_AUTHZ_CODE WHERE AUTHORIZATION_CODE = $1",
}

// queryConsumeAuthorizationCode deactivates an active code. The conditional
// update is the atomic check-and-consume.
var queryConsumeAuthorizationCode = dbmodel.DBQuery{
	ID: "AZQ-00003",
	Query: "UPDATE IDN_OAUTH2_AUTHZ_CODE SET STATE = 'inactive' " +
		"WHERE AUTHORIZATION_CODE = $1 AND STATE = 'active'",
}

// queryExpireAuthorizationCode marks a code expired.
var queryExpireAuthorizationCode = dbmodel.DBQuery{
	ID:    "AZQ-00004",
	Query: "UPDATE IDN_OAUTH2_AUTHZ_CODE SET STATE = 'expired' WHERE CODE_ID = $1",
}
